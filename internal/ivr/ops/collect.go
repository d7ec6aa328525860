package ops

import (
	"context"

	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
)

func init() {
	flow.RegisterHandler(registry.OpCollectDigits, collectDigits)
}

// collectDigits collects up to node.InputLength digits terminated by
// "#", retrying invalid input up to node.RepeatLimit times. On a full
// valid collection it stores the digits under node.TagName and returns
// "#"; on exhaustion it returns "X", or "D" (storing DefaultInput) when
// the node's timeout policy asks for a default.
func collectDigits(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	regex := buildValidKeysRegex(node.ValidKeys)
	timeout := timeoutFromSeconds(node.InputTimeLimit)

	digits, err := cc.Provider.PlayAndGetDigits(
		ctx, "", node.InvalidInputVoiceFileID,
		node.InputLength, node.InputLength, node.RepeatLimit+1,
		timeout, "#", regex,
	)
	if err != nil {
		return "", err
	}

	if digits == "" {
		if usesDefaultOnTimeout(node.TimeLimitResponseType) {
			cc.Store.Set(node.TagName, node.DefaultInput)
			return "D", nil
		}
		return "X", nil
	}

	cc.Store.Set(node.TagName, digits)
	return "#", nil
}
