// Package provider defines the telephony adapter interface the call
// flow engine consumes. The adapter itself — audio
// playback, DTMF capture, recording, TTS synthesis, and call bridging —
// is an external collaborator; this package only names the contract.
package provider

import (
	"context"
	"time"
)

// Provider is implemented by the telephony adapter bound to one call.
// Every method may block until its primitive completes or the call
// hangs up; the flow driver does not hold any lock across these calls.
type Provider interface {
	// Answer accepts the inbound call leg.
	Answer(ctx context.Context) error

	// Hangup releases the call with the given cause.
	Hangup(ctx context.Context, cause string) error

	// GetSessionVar mirrors a provider-side session variable into the
	// engine, used so provider features can observe engine state.
	GetSessionVar(ctx context.Context, name string) (string, bool)

	// SetSessionVar mirrors an engine variable into the provider
	// session.
	SetSessionVar(ctx context.Context, name, value string) error

	// Play blocks until filePath finishes playing or the caller barges
	// in.
	Play(ctx context.Context, filePath string) error

	// PlayAndGetDigits plays prompt, then collects digits bounded by
	// minLen/maxLen, terminator, and timeout. invalidPrompt plays on a
	// retry after invalid input; regex further restricts valid digit
	// sequences (e.g. "1|2|3"). Returns the collected digits, or empty
	// on timeout.
	PlayAndGetDigits(ctx context.Context, prompt, invalidPrompt string, minLen, maxLen, attempts int, timeout time.Duration, terminator, regex string) (string, error)

	// ReadDigits is PlayAndGetDigits without a prompt.
	ReadDigits(ctx context.Context, minLen, maxLen int, timeout time.Duration, terminator string) (string, error)

	// Record creates path, capped at maxDuration or silenceSeconds of
	// trailing silence above silenceThreshold (an energy level in
	// [0,1]).
	Record(ctx context.Context, path string, maxDuration time.Duration, silenceThreshold float64, silenceSeconds time.Duration) error

	// Speak synthesizes and plays text using the named engine and
	// voice.
	Speak(ctx context.Context, engine, voice, text string) error

	// Bridge originates and bridges dialString, returning the hangup
	// cause of the bridged leg.
	Bridge(ctx context.Context, dialString string) (cause string, err error)

	// DirectoryExists reports whether extension exists in domain.
	DirectoryExists(ctx context.Context, extension, domain string) (bool, error)

	// QueueDispatch hands the call to the named queue subsystem. It
	// does not return until the queue leg ends.
	QueueDispatch(ctx context.Context, queueName string) error

	// TransferForEvaluation hands the call to dialplanDestination and
	// arranges for the call to re-enter the engine when that leg ends.
	TransferForEvaluation(ctx context.Context, dialplanDestination string) error

	// AgentSetStatus/State/Contact drive call-center agent control
	// plane state for the given extension.
	AgentSetStatus(ctx context.Context, extension, value string) error
	AgentSetState(ctx context.Context, extension, value string) error
	AgentSetContact(ctx context.Context, extension, contact string) error

	// AgentRegistration reports whether extension is currently
	// registered, and any bindable contact address.
	AgentRegistration(ctx context.Context, extension string) (registered bool, contact string, err error)

	// AgentDoNotDisturb reports the externally recorded DND flag for
	// extension.
	AgentDoNotDisturb(ctx context.Context, extension string) (string, error)

	// AgentQueueState reports the externally recorded queue state for
	// extension.
	AgentQueueState(ctx context.Context, extension string) (string, error)

	// GetGlobal reads a named process-wide provider setting.
	GetGlobal(ctx context.Context, name string) (string, bool)

	// CallID returns the opaque identifier of the bound call.
	CallID() string

	// Hungup reports whether the caller has already hung up, checked
	// by the driver after every suspension point.
	Hungup() bool
}
