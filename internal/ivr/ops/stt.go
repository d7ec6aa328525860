package ops

import (
	"context"

	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
)

func init() {
	flow.RegisterHandler(registry.OpSpeechToText, speechToText)
}

// speechToText transcribes the recording named by the variable
// node.DefaultInput and stores the transcript under node.TagName.
func speechToText(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	if cc.STT == nil {
		return "F", nil
	}

	path, ok := cc.Store.Get(node.DefaultInput)
	if !ok || path == "" {
		return "F", nil
	}

	text, err := cc.STT.Transcribe(ctx, path)
	if err != nil {
		return "F", nil
	}

	cc.Store.Set(node.TagName, text)
	return "S", nil
}
