package ops

import (
	"context"

	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
)

func init() {
	flow.RegisterHandler(registry.OpBranch, branch)
	flow.RegisterHandler(registry.OpTerminate, terminate)
}

// branch has no primitive of its own: the driver's edge selector
// already evaluates comparison edges for every op code, so this
// handler only needs to hand back an empty token.
func branch(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	return "", nil
}

// terminate ends the call.
func terminate(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	cc.Terminated = true
	return "", nil
}
