package ops

import (
	"context"
	"regexp"

	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
)

func init() {
	flow.RegisterHandler(registry.OpTTSBuiltin, ttsBuiltin)
	flow.RegisterHandler(registry.OpTTSCloud, ttsCloud)
}

// spacedDigitRun matches only the first contiguous digit run in a
// string; later runs are left untouched, matching the narrower rewrite
// the source's digit-spacing rule actually performs.
var spacedDigitRun = regexp.MustCompile(`\d+`)

// spaceFirstDigitRun inserts a single space between each digit of the
// first digit run in text, leaving any later run alone.
func spaceFirstDigitRun(text string) string {
	loc := spacedDigitRun.FindStringIndex(text)
	if loc == nil {
		return text
	}

	run := text[loc[0]:loc[1]]
	spaced := make([]byte, 0, len(run)*2-1)
	for i := 0; i < len(run); i++ {
		if i > 0 {
			spaced = append(spaced, ' ')
		}
		spaced = append(spaced, run[i])
	}

	return text[:loc[0]] + string(spaced) + text[loc[1]:]
}

func ttsBuiltin(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	return speak(ctx, cc, node, "builtin", cc.Store.GetOr("TTSVoiceNameBuiltIn", ""))
}

func ttsCloud(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	return speak(ctx, cc, node, "cloud", cc.Store.GetOr("TTSVoiceNameCloud", ""))
}

func speak(ctx context.Context, cc *flow.CallContext, node registry.Node, engine, voice string) (string, error) {
	text := cc.Store.Expand(node.DefaultInput)
	text = spaceFirstDigitRun(text)

	if err := cc.Provider.Speak(ctx, engine, voice, text); err != nil {
		return "", err
	}
	return "S", nil
}
