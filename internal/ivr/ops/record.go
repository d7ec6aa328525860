package ops

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
)

func init() {
	flow.RegisterHandler(registry.OpRecord, record)
}

// silenceThreshold and silenceSeconds bound how long the provider
// waits for trailing silence before ending a recording.
const (
	silenceThreshold = 0.02
	silenceSeconds   = 3 * time.Second

	// minVoiceBytes is the smallest WAV payload treated as containing
	// voice rather than silence, once the provider's own silence
	// detection has already trimmed the file. A few PCM frames of
	// genuine speech comfortably clear this; an empty or header-only
	// capture does not.
	minVoiceBytes = 4096
)

// record captures caller audio to a profiled file and reports whether
// it judged the result to contain voice.
func record(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	profile, ok := cc.Registry.RecordingProfile(node.RecordingTypeID)
	if !ok {
		return "", fmt.Errorf("recording profile %d not found", node.RecordingTypeID)
	}

	path := fmt.Sprintf("%s_%s.wav", profile.FilePrefix, cc.CallID)
	maxDuration, err := profile.Duration()
	if err != nil {
		return "", err
	}
	if maxDuration <= 0 {
		maxDuration = 60 * time.Second
	}

	if err := cc.Provider.Record(ctx, path, maxDuration, silenceThreshold, silenceSeconds); err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil || info.Size() < minVoiceBytes {
		return "D", nil
	}

	cc.Store.Set(node.TagName, path)
	return "S", nil
}
