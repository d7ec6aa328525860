// Package flow implements the per-call state machine:
// the node dispatcher, edge selector, comparison evaluator,
// and the fault boundary that keeps a single misbehaving handler from
// taking down the process.
//
// The graph is explicitly cyclic (menus loop back to themselves), so
// the driver is an iterative current-node loop bounded by a transition
// count, never a topological traversal.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
)

// Driver runs one call's node loop to completion.
type Driver struct {
	// MaxTransitions bounds the per-call loop. NewDriver replaces a zero
	// or negative bound with 300; Run uses the field as set.
	MaxTransitions int
}

// NewDriver creates a Driver with the given transition bound.
func NewDriver(maxTransitions int) *Driver {
	if maxTransitions <= 0 {
		maxTransitions = 300
	}
	return &Driver{MaxTransitions: maxTransitions}
}

// Run executes cc's node loop until termination, a dead end, or a
// fatal error. It never panics: every handler
// invocation is wrapped in a fault boundary.
//
// A non-zero cc.ReentryNodeID means this call is resuming after a
// bridged queue-evaluation transfer.
// Run resumes at the first edge of that node rather than re-running
// its handler, since the node already ran once before the transfer. A
// non-bridged re-entry is the caller's responsibility (the engine
// plays a failure prompt and never calls Run at all), so Run never
// sees ReentryNodeID set for that case.
func (d *Driver) Run(ctx context.Context, cc *CallContext) error {
	if cc.ReentryNodeID != 0 {
		node, ok := cc.Registry.Node(cc.ReentryNodeID)
		if !ok {
			return fmt.Errorf("call %s: re-entry node %d not found", cc.CallID, cc.ReentryNodeID)
		}
		cc.ReentryNodeID = 0

		if len(node.Edges) == 0 {
			return fmt.Errorf("call %s: re-entry node %d: %w (no outgoing edge)", cc.CallID, node.ID, ErrDeadEnd)
		}
		cc.CurrentNodeID = node.Edges[0].TargetID
	} else {
		if cc.Registry.IsClosedForBusinessHours(time.Now()) {
			return closeForBusinessHours(ctx, cc)
		}
		cc.CurrentNodeID = cc.Registry.StartNode().ID
	}

	for transitions := 0; ; transitions++ {
		if transitions >= d.MaxTransitions {
			return fmt.Errorf("call %s: exceeded %d node transitions, aborting", cc.CallID, d.MaxTransitions)
		}

		if cc.Provider.Hungup() {
			slog.Info("call hung up, ending driver loop", "call_id", cc.CallID, "node", cc.CurrentNodeID)
			return nil
		}

		node, ok := cc.Registry.Node(cc.CurrentNodeID)
		if !ok {
			return fmt.Errorf("call %s: node %d not found", cc.CallID, cc.CurrentNodeID)
		}

		cc.RetryCount = 0

		token, err := d.dispatch(ctx, cc, node)
		if err != nil {
			return fmt.Errorf("call %s: node %d: %w", cc.CallID, node.ID, err)
		}

		if cc.Terminated || node.OpCode == registry.OpTerminate {
			slog.Info("call terminated", "call_id", cc.CallID, "node", node.ID)
			return nil
		}

		next, err := SelectEdge(node, token, cc.Store)
		if err != nil {
			return fmt.Errorf("call %s: %w", cc.CallID, err)
		}

		slog.Debug("edge selected", "call_id", cc.CallID, "from", node.ID, "token", token, "to", next)
		cc.CurrentNodeID = next
	}
}

// closeForBusinessHours plays the registry's configured unavailability
// audio and releases the call before the start node is ever reached
//. It never returns a driver error: a closed gate is a
// normal, expected outcome, not a fault.
func closeForBusinessHours(ctx context.Context, cc *CallContext) error {
	slog.Info("business-hours gate closed, rejecting call", "call_id", cc.CallID)

	if audio := cc.Registry.UnavailabilityAudio(); audio != "" {
		if err := cc.Provider.Play(ctx, audio); err != nil {
			slog.Warn("business-hours gate: failed to play unavailability audio", "call_id", cc.CallID, "error", err)
		}
	}

	if err := cc.Provider.Hangup(ctx, "NORMAL_CLEARING"); err != nil {
		slog.Warn("business-hours gate: hangup failed", "call_id", cc.CallID, "error", err)
	}

	return nil
}

// dispatch looks up and invokes the handler for node.OpCode, catching
// any panic as a fatal internal error.
func (d *Driver) dispatch(ctx context.Context, cc *CallContext, node registry.Node) (token string, err error) {
	h, ok := HandlerFor(node.OpCode)
	if !ok {
		return "", fmt.Errorf("unknown op code %d", node.OpCode)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return h(ctx, cc, node)
}
