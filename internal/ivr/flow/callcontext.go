package flow

import (
	"context"

	"github.com/rakunlabs/ivrflow/internal/ivr/provider"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
	"github.com/rakunlabs/ivrflow/internal/ivr/vars"
)

// HTTPInvoker is the API-invocation subsystem a handler calls for ops
// 111/112. Implemented by *httpapi.Invoker.
type HTTPInvoker interface {
	Invoke(ctx context.Context, api registry.ApiSpec, store *vars.Store) (string, error)

	// ExecuteRaw runs api without touching store's outputs, returning
	// the raw status code and body. Op 112 uses this to additionally
	// populate curl_response_code/curl_response_data.
	ExecuteRaw(ctx context.Context, api registry.ApiSpec, store *vars.Store) (statusCode int, body []byte, err error)
}

// STTTranscriber is the speech-to-text subsystem op 341 calls.
// Implemented by *stt.Client.
type STTTranscriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// AgentManager is the agent-transfer rendezvous subsystem ops 100/101
// call. Implemented by *agent.Manager.
type AgentManager interface {
	Dispatch(ctx context.Context, cc *CallContext, requireEvaluation bool) error
}

// CallContext is per-call state threaded through every handler
// invocation. It is created when a call
// arrives and discarded when the call ends; it is never shared across
// calls (invariant 4).
type CallContext struct {
	Store    *vars.Store
	Registry *registry.Registry
	Provider provider.Provider

	// HTTP, STT, and Agents bind the other two core subsystems into the handler's reach. Nil is valid when a flow never
	// exercises the corresponding op codes.
	HTTP   HTTPInvoker
	STT    STTTranscriber
	Agents AgentManager

	// CurrentNodeID is the node about to run.
	CurrentNodeID int

	// RetryCount is scoped to CurrentNodeID and reset whenever the
	// driver moves to a new node. Handlers that loop internally (ops 20,
	// 30, 31) keep their own attempt count and do not update it.
	RetryCount int

	// Terminated is set by op 200 and checked by the driver after
	// every handler invocation.
	Terminated bool

	// CallID is the provider's opaque call identifier.
	CallID string

	// ReentryNodeID, when non-zero, is the node a bridged
	// queue-evaluation re-entry transferred from, read from the reserved cc_last_nodeId variable. The
	// driver resumes at this node's first edge, not by re-running its
	// handler. A non-bridged re-entry never reaches the driver with
	// this set; the engine handles that case directly.
	ReentryNodeID int
}

// NewCallContext builds a fresh CallContext for an inbound call and
// seeds the well-known identity variables.
func NewCallContext(reg *registry.Registry, p provider.Provider, callerIDNumber, callerIDName, domainName string) *CallContext {
	store := vars.New()
	store.Set("uuid", p.CallID())
	store.Set("caller_id_number", callerIDNumber)
	store.Set("caller_id_name", callerIDName)
	store.Set("domain_name", domainName)

	return &CallContext{
		Store:    store,
		Registry: reg,
		Provider: p,
		CallID:   p.CallID(),
	}
}
