// Package engine wires the registry, HTTP invoker, speech-to-text
// client, agent manager, and flow driver into one entry point the
// telephony adapter calls per inbound leg.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rakunlabs/ivrflow/internal/ivr/agent"
	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
	"github.com/rakunlabs/ivrflow/internal/ivr/provider"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
	"github.com/rakunlabs/ivrflow/internal/store/storetype"
)

// CallRecorder persists the outcome of a finished call. Implemented by
// store.Storer; nil disables audit persistence.
type CallRecorder interface {
	RecordCall(ctx context.Context, rec storetype.CallRecord) error
}

// Engine is the process-wide, hot-swappable binding of one loaded
// Registry to the three call-flow subsystems it drives through.
type Engine struct {
	reg atomic.Pointer[registry.Registry]

	driver *flow.Driver
	http   flow.HTTPInvoker
	stt    flow.STTTranscriber
	agents flow.AgentManager

	store CallRecorder
}

// New builds an Engine bound to reg and the three call subsystems.
// http, stt, and store may be nil when the loaded flow never exercises
// the corresponding ops, or audit persistence is not configured.
func New(reg *registry.Registry, maxNodeTransitions int, httpInvoker flow.HTTPInvoker, sttClient flow.STTTranscriber, agentManager flow.AgentManager, store CallRecorder) *Engine {
	e := &Engine{
		driver: flow.NewDriver(maxNodeTransitions),
		http:   httpInvoker,
		stt:    sttClient,
		agents: agentManager,
		store:  store,
	}
	e.reg.Store(reg)
	return e
}

// Registry returns the currently active registry.
func (e *Engine) Registry() *registry.Registry {
	return e.reg.Load()
}

// Reload atomically swaps in a newly loaded registry. Calls already in
// flight keep running against the CallContext's own pointer, captured
// at HandleCall time; only calls that arrive after Reload returns see
// next.
func (e *Engine) Reload(next *registry.Registry) {
	e.reg.Store(next)
}

// HandleCall runs one inbound call's node loop to completion: it seeds
// a CallContext against the engine's current registry, resolves any
// pending queue-evaluation re-entry, runs the driver, and
// records the outcome for the admin API.
func (e *Engine) HandleCall(ctx context.Context, p provider.Provider, callerIDNumber, callerIDName, domainName string) error {
	reg := e.reg.Load()
	cc := flow.NewCallContext(reg, p, callerIDNumber, callerIDName, domainName)
	cc.HTTP = e.http
	cc.STT = e.stt
	cc.Agents = e.agents

	if err := p.Answer(ctx); err != nil {
		return fmt.Errorf("answer call %s: %w", cc.CallID, err)
	}

	isReentry, bridged, err := agent.ResolveReentry(ctx, cc)
	if err != nil {
		slog.Warn("engine: re-entry resolution failed", "call_id", cc.CallID, "error", err)
	}

	started := time.Now()

	var runErr error
	if isReentry && !bridged {
		cc.CurrentNodeID = cc.ReentryNodeID
		slog.Info("engine: evaluation transfer did not bridge, playing failure prompt",
			"call_id", cc.CallID, "node", cc.ReentryNodeID, "cancel_reason", agent.CancelReason(ctx, cc))
		runErr = playReentryFailure(ctx, cc)
	} else {
		runErr = e.driver.Run(ctx, cc)
	}

	e.release(ctx, cc, runErr)

	if e.store != nil {
		rec := storetype.CallRecord{
			CallID:      cc.CallID,
			StartedAt:   started,
			EndedAt:     time.Now(),
			FinalNodeID: cc.CurrentNodeID,
			ResultToken: resultToken(runErr),
		}
		if runErr != nil {
			rec.Error = runErr.Error()
		}
		if err := e.store.RecordCall(context.WithoutCancel(ctx), rec); err != nil {
			slog.Warn("engine: failed to record call outcome", "call_id", cc.CallID, "error", err)
		}
	}

	return runErr
}

func resultToken(err error) string {
	if err != nil {
		return "F"
	}
	return "S"
}

// reentryFailureMessage is spoken when a queue-evaluation transfer
// ends without a bridge. No canned audio file is
// configured for this path, so it always goes through TTS.
const reentryFailureMessage = "We're sorry, we were unable to connect your call to an agent at this time. Goodbye."

// release hangs up the call leg once the node loop is done. It stays
// out of the way when the caller already hung up, or when an
// evaluation transfer disabled automatic hangup so the provider can
// keep the leg alive for the agent bridge.
func (e *Engine) release(ctx context.Context, cc *flow.CallContext, runErr error) {
	if cc.Provider.Hungup() {
		return
	}
	if v, _ := cc.Provider.GetSessionVar(ctx, "cc_auto_hangup"); v == "false" {
		return
	}

	cause := "NORMAL_CLEARING"
	if runErr != nil {
		cause = "TEMPORARY_FAILURE"
	}
	if err := cc.Provider.Hangup(context.WithoutCancel(ctx), cause); err != nil {
		slog.Warn("engine: hangup failed", "call_id", cc.CallID, "error", err)
	}
}

// playReentryFailure speaks the failure prompt and releases the call.
func playReentryFailure(ctx context.Context, cc *flow.CallContext) error {
	voice := cc.Store.GetOr("TTSVoiceNameBuiltIn", "")
	if err := cc.Provider.Speak(ctx, "builtin", voice, reentryFailureMessage); err != nil {
		slog.Warn("engine: failed to speak re-entry failure prompt", "call_id", cc.CallID, "error", err)
	}

	return cc.Provider.Hangup(ctx, "NORMAL_CLEARING")
}
