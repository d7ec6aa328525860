package ops

import (
	"context"
	"os"

	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
)

func init() {
	flow.RegisterHandler(registry.OpPlayAudio, playAudio)
	flow.RegisterHandler(registry.OpPlayCapturedFile, playCapturedFile)
}

// playAudio plays the node's configured file and takes its single
// outgoing edge; it never branches.
func playAudio(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	if err := cc.Provider.Play(ctx, node.VoiceFileID); err != nil {
		return "", err
	}
	return "S", nil
}

// playCapturedFile plays the file whose path was stored earlier in the
// call under node.TagName. A missing or empty file ends the call
// rather than producing a result token.
func playCapturedFile(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	path, ok := cc.Store.Get(node.TagName)
	if !ok || path == "" {
		cc.Terminated = true
		return "", nil
	}

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		cc.Terminated = true
		return "", nil
	}

	if err := cc.Provider.Play(ctx, path); err != nil {
		return "", err
	}
	return "S", nil
}
