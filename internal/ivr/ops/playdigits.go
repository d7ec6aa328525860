package ops

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
)

func init() {
	flow.RegisterHandler(registry.OpPlayDigits, playDigits)
}

var firstDigitRun = regexp.MustCompile(`\d+`)

// playDigits reads the variable named by node.DefaultInput, extracts
// its first digit run, and plays each digit as a per-language audio
// file. It has a single outgoing edge; it never branches.
func playDigits(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	value, _ := cc.Store.Get(node.DefaultInput)
	run := firstDigitRun.FindString(value)

	lang := cc.Store.GetOr("LanguageCode", "0")
	for _, d := range run {
		file := fmt.Sprintf("digit_%s_%c.wav", lang, d)
		if err := cc.Provider.Play(ctx, file); err != nil {
			return "", err
		}
	}

	return "S", nil
}
