package ops

import (
	"context"
	"strconv"

	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
)

func init() {
	flow.RegisterHandler(registry.OpPlayAndCollect, playAndCollect)
	flow.RegisterHandler(registry.OpPlayCapturedCollect, playCapturedCollect)
}

// playAndCollect plays node.VoiceFileID and collects one digit as a
// menu selection.
func playAndCollect(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	return collectMenuDigit(ctx, cc, node, node.VoiceFileID)
}

// playCapturedCollect is playAndCollect with the prompt taken from a
// file captured earlier in the call.
func playCapturedCollect(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	prompt, _ := cc.Store.Get(node.TagName)
	return collectMenuDigit(ctx, cc, node, prompt)
}

// collectMenuDigit implements the shared op 30/31 contract: single
// digit collection, then either a language-select row copy or a plain
// tag_name write (optionally prefixed). The result token is the digit
// itself, or "X"/"D" on failure.
func collectMenuDigit(ctx context.Context, cc *flow.CallContext, node registry.Node, prompt string) (string, error) {
	regex := buildValidKeysRegex(node.ValidKeys)
	timeout := timeoutFromSeconds(node.InputTimeLimit)

	digit, err := cc.Provider.PlayAndGetDigits(
		ctx, prompt, node.InvalidInputVoiceFileID,
		1, 1, node.RepeatLimit+1,
		timeout, "", regex,
	)
	if err != nil {
		return "", err
	}

	if digit == "" {
		if usesDefaultOnTimeout(node.TimeLimitResponseType) {
			applyMenuSelection(cc, node, node.DefaultInput)
			// The default digit is the selection: route as if the
			// caller had pressed it, so the author's per-digit edges
			// still apply. "D" only fires when no default exists.
			if node.DefaultInput != "" {
				return node.DefaultInput, nil
			}
			return "D", nil
		}
		return "X", nil
	}

	applyMenuSelection(cc, node, digit)
	return digit, nil
}

// applyMenuSelection writes a collected digit into the variable store:
// a full language-row copy when the node selects a language, or a
// plain tag_name write (optionally prefixed) otherwise.
func applyMenuSelection(cc *flow.CallContext, node registry.Node, digit string) {
	if !node.IsLanguageSelect {
		cc.Store.Set(node.TagName, node.TagValuePrefix+digit)
		return
	}

	code, err := strconv.Atoi(digit)
	if err != nil {
		return
	}

	row, ok := cc.Registry.LanguageRow(code)
	if !ok {
		return
	}

	cc.Store.Set("LanguageCode", strconv.Itoa(row.LanguageCode))
	cc.Store.Set("LanguageName", row.LanguageName)
	cc.Store.Set("TTSLanguageCode", row.TTSLanguageCode)
	cc.Store.Set("STTLanguageCode", row.STTLanguageCode)
	cc.Store.Set("TTSVoiceNameBuiltIn", row.TTSVoiceNameBuiltIn)
	cc.Store.Set("TTSVoiceNameCloud", row.TTSVoiceNameCloud)
}
