package ops

import (
	"strings"
	"time"
)

// buildValidKeysRegex turns a comma-separated digit set ("1,2,3") into
// the alternation regex the provider's digit collection expects
// ("1|2|3"). An empty set places no constraint beyond the collector's
// own length/terminator rules.
func buildValidKeysRegex(validKeys string) string {
	if validKeys == "" {
		return ""
	}
	parts := strings.Split(validKeys, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, "|")
}

// usesDefaultOnTimeout reports whether a node's time_limit_response_type
// asks for the default-input fallback ("D") rather than exhaustion
// ("X") when no valid digits arrive.
func usesDefaultOnTimeout(responseType string) bool {
	return strings.EqualFold(responseType, "use_default") || strings.EqualFold(responseType, "default")
}

func timeoutFromSeconds(seconds int) time.Duration {
	if seconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(seconds) * time.Second
}
