// Package agent implements the agent-transfer rendezvous subsystem:
// agent pool state, availability filtering, queue handoff, and the
// callback contract used when an evaluation transfer leg ends. This is
// a message-passing pattern: the engine issues commands to the
// provider's agent control plane and reads status back; it never
// mirrors that state in-process.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
)

// stabilizationPause is the "short stabilization pause" before queue
// handoff, giving the provider's control plane a moment to
// settle agent status changes before the queue starts dispatching.
const stabilizationPause = 500 * time.Millisecond

// defaultQueueName is used when the registry/config names none.
const defaultQueueName = "default"

// dndBusy and queueStateInCall are the externally recorded values op
// 101 screens agents against.
const (
	dndBusy          = "Busy"
	queueStateInCall = "In a queue call"
)

// Notifier receives a best-effort alert when no agents are available.
// Implemented by *notify.Notifier; nil disables alerting.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Manager drives the agent rendezvous ops (100, 101).
type Manager struct {
	QueueName string
	Notifier  Notifier
}

// NewManager creates a Manager. An empty queueName falls back to
// defaultQueueName.
func NewManager(queueName string, notifier Notifier) *Manager {
	return &Manager{QueueName: queueName, Notifier: notifier}
}

// Dispatch runs the op 100/101 state machine and hands the
// call to the provider's queue mechanism. It blocks until the queue
// primitive returns, per the provider's own blocking semantics. requireEvaluation selects the op 101
// additions: DND/queue-state screening and evaluation transfer instead
// of plain queue dispatch.
func (m *Manager) Dispatch(ctx context.Context, cc *flow.CallContext, requireEvaluation bool) error {
	available := 0

	for _, a := range cc.Registry.Agents() {
		if !a.IsAgent {
			// Supervisors are reset to IDLE.
			if err := cc.Provider.AgentSetState(ctx, a.Extension, "IDLE"); err != nil {
				slog.Warn("agent rendezvous: failed to idle supervisor", "call_id", cc.CallID, "extension", a.Extension, "error", err)
			}
			continue
		}

		if requireEvaluation && m.skipForScreening(ctx, cc, a.Extension) {
			continue
		}

		registered, contact, err := cc.Provider.AgentRegistration(ctx, a.Extension)
		if err != nil {
			slog.Warn("agent rendezvous: registration query failed", "call_id", cc.CallID, "extension", a.Extension, "error", err)
			continue
		}

		if !registered {
			_ = cc.Provider.AgentSetStatus(ctx, a.Extension, "LoggedOut")
			continue
		}

		_ = cc.Provider.AgentSetStatus(ctx, a.Extension, "Available")
		_ = cc.Provider.AgentSetContact(ctx, a.Extension, contact)
		_ = cc.Provider.AgentSetState(ctx, a.Extension, "WAITING")
		available++
	}

	if available == 0 {
		slog.Warn("agent rendezvous: no agents available", "call_id", cc.CallID, "queue", m.queueName())
		if m.Notifier != nil {
			if err := m.Notifier.Notify(ctx, "ivrflow: no agents available",
				fmt.Sprintf("call %s reached queue %q with zero available agents", cc.CallID, m.queueName())); err != nil {
				slog.Warn("agent rendezvous: alert failed", "error", err)
			}
		}
	}

	select {
	case <-time.After(stabilizationPause):
	case <-ctx.Done():
		return ctx.Err()
	}

	if !requireEvaluation {
		return cc.Provider.QueueDispatch(ctx, m.queueName())
	}

	// cc_last_nodeId must survive into the next call's CallContext, so it
	// is mirrored into the provider's session rather than
	// only the per-call store, which is discarded when this call ends.
	lastNodeID := strconv.Itoa(cc.CurrentNodeID)
	cc.Store.Set("cc_last_nodeId", lastNodeID)
	if err := cc.Provider.SetSessionVar(ctx, "cc_last_nodeId", lastNodeID); err != nil {
		return fmt.Errorf("record evaluation transfer node: %w", err)
	}
	if err := cc.Provider.SetSessionVar(ctx, "cc_auto_hangup", "false"); err != nil {
		return fmt.Errorf("disable automatic hangup: %w", err)
	}

	return cc.Provider.TransferForEvaluation(ctx, m.queueName())
}

func (m *Manager) skipForScreening(ctx context.Context, cc *flow.CallContext, extension string) bool {
	if dnd, err := cc.Provider.AgentDoNotDisturb(ctx, extension); err == nil && dnd == dndBusy {
		return true
	}
	if qs, err := cc.Provider.AgentQueueState(ctx, extension); err == nil && qs == queueStateInCall {
		return true
	}
	return false
}

func (m *Manager) queueName() string {
	if m.QueueName == "" {
		return defaultQueueName
	}
	return m.QueueName
}
