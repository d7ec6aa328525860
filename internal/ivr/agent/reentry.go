package agent

import (
	"context"
	"strconv"

	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
)

// Reserved session variables the provider's evaluation-transfer
// dialplan writes back before handing the call back to the engine.
const (
	sessionVarLastNode     = "cc_last_nodeId"
	sessionVarBridged      = "cc_agent_bridged"
	sessionVarCancelReason = "cc_cancel_reason"

	bridgedTrue = "true"
)

// ResolveReentry inspects a freshly built CallContext's provider
// session for a pending evaluation-transfer outcome and, if one is
// present, seeds cc.ReentryNodeID with the node the call was
// transferred from. It reports
// whether this call is a re-entry at all, and whether the agent leg
// bridged.
//
// A caller that gets bridged=true must resume the driver at the first
// edge of cc.ReentryNodeID, not re-run that node's handler. A caller
// that gets bridged=false (agent timeout, no bridge, hangup during
// evaluation) must not touch the driver at all: it should play a
// failure prompt and terminate instead.
func ResolveReentry(ctx context.Context, cc *flow.CallContext) (isReentry bool, bridged bool, err error) {
	raw, ok := cc.Provider.GetSessionVar(ctx, sessionVarLastNode)
	if !ok || raw == "" {
		return false, false, nil
	}

	nodeID, err := strconv.Atoi(raw)
	if err != nil {
		return true, false, nil
	}

	outcome, _ := cc.Provider.GetSessionVar(ctx, sessionVarBridged)

	cc.ReentryNodeID = nodeID
	return true, outcome == bridgedTrue, nil
}

// CancelReason reads the provider-recorded reason a non-bridged
// evaluation transfer ended, for diagnostic logging only.
func CancelReason(ctx context.Context, cc *flow.CallContext) string {
	reason, _ := cc.Provider.GetSessionVar(ctx, sessionVarCancelReason)
	return reason
}
