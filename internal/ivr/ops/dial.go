package ops

import (
	"context"
	"strings"

	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
)

func init() {
	flow.RegisterHandler(registry.OpExtensionDial, extensionDial)
	flow.RegisterHandler(registry.OpDirectExtension, directExtension)
	flow.RegisterHandler(registry.OpExternalDial, externalDial)
}

// normalClearingCauses are the bridge outcomes treated as success:
// NORMAL_CLEARING (matched case-insensitively) and empty, meaning no
// hangup cause reported. Any other cause counts as a failed bridge.
var normalClearingCauses = map[string]bool{
	"":                true,
	"NORMAL_CLEARING": true,
}

func bridgeToken(cause string) string {
	if normalClearingCauses[strings.ToUpper(cause)] {
		return "S"
	}
	return "F"
}

// extensionDial collects an extension number with the same validation
// policy as op 20, checks the provider's directory, and bridges.
func extensionDial(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	regex := buildValidKeysRegex(node.ValidKeys)
	timeout := timeoutFromSeconds(node.InputTimeLimit)

	digits, err := cc.Provider.PlayAndGetDigits(
		ctx, node.VoiceFileID, node.InvalidInputVoiceFileID,
		node.InputLength, node.InputLength, node.RepeatLimit+1,
		timeout, "#", regex,
	)
	if err != nil {
		return "", err
	}
	if digits == "" {
		return "F", nil
	}

	domain := cc.Store.GetOr("domain_name", "")
	exists, err := cc.Provider.DirectoryExists(ctx, digits, domain)
	if err != nil || !exists {
		return "F", nil
	}

	cause, err := cc.Provider.Bridge(ctx, digits)
	if err != nil {
		return "F", nil
	}
	return bridgeToken(cause), nil
}

// directExtension bridges straight to the literal extension in
// node.ValidKeys.
func directExtension(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	cause, err := cc.Provider.Bridge(ctx, node.ValidKeys)
	if err != nil {
		return "F", nil
	}
	return bridgeToken(cause), nil
}

// externalDial bridges to node.ValidKeys through a named external
// gateway.
func externalDial(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	cause, err := cc.Provider.Bridge(ctx, "gateway/"+node.ValidKeys)
	if err != nil {
		return "F", nil
	}
	return bridgeToken(cause), nil
}
