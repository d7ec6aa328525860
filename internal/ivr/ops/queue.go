package ops

import (
	"context"

	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
)

func init() {
	flow.RegisterHandler(registry.OpTransferQueue, transferQueue)
	flow.RegisterHandler(registry.OpTransferQueueEval, transferQueueEval)
}

// transferQueue hands the call to the agent queue. It never returns a
// result token: once the queue primitive completes, this call's
// driver loop has nothing left to do, so the handler ends the call.
func transferQueue(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	return dispatchToQueue(ctx, cc, false)
}

// transferQueueEval additionally screens agents by DND/queue state and
// hands off through the provider's evaluation-transfer primitive so a
// later call can resume at this node via the re-entry contract.
func transferQueueEval(ctx context.Context, cc *flow.CallContext, node registry.Node) (string, error) {
	return dispatchToQueue(ctx, cc, true)
}

func dispatchToQueue(ctx context.Context, cc *flow.CallContext, requireEvaluation bool) (string, error) {
	cc.Terminated = true
	if cc.Agents == nil {
		return "", nil
	}
	return "", cc.Agents.Dispatch(ctx, cc, requireEvaluation)
}
