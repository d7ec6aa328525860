// Package devprovider is a logging-only provider.Provider, the one
// concrete telephony adapter this repository ships. It answers every blocking primitive immediately with a
// deterministic or configured value instead of touching real audio,
// DTMF, or SIP signaling, so the admin API's call-simulation endpoint
// and integration tests can drive the flow driver end to end without a
// telephony platform attached.
package devprovider

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Script canned answers a simulated call supplies when a handler asks
// for caller input. Every field is optional; zero values fall through
// to devprovider's defaults.
type Script struct {
	// Digits is returned, in order, by successive PlayAndGetDigits/
	// ReadDigits calls. Once exhausted, "" is returned (a timeout).
	Digits []string

	// BridgeCause is returned by Bridge.
	BridgeCause string

	// DirectoryExtensions lists extensions DirectoryExists reports as
	// present.
	DirectoryExtensions map[string]bool

	// Globals seeds GetGlobal.
	Globals map[string]string
}

// Provider is a scripted, non-blocking stand-in for a real telephony
// adapter, bound to one simulated call.
type Provider struct {
	mu sync.Mutex

	callID  string
	script  Script
	hungUp  bool
	digitIx int

	sessionVars map[string]string
	agentStates map[string]string

	// Events records, in order, every provider call that acts on the
	// simulated call (answer, hangup, play, digit collection, record,
	// speak, bridge, queue and agent updates, session-variable writes),
	// for assertions in tests and for echoing back to the admin API
	// caller. Read-only queries are not recorded.
	Events []string
}

// New creates a Provider bound to callID, scripted by s.
func New(callID string, s Script) *Provider {
	return &Provider{
		callID:      callID,
		script:      s,
		sessionVars: map[string]string{},
		agentStates: map[string]string{},
	}
}

func (p *Provider) log(format string, args ...any) {
	p.Events = append(p.Events, fmt.Sprintf(format, args...))
}

func (p *Provider) Answer(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("answer")
	return nil
}

func (p *Provider) Hangup(ctx context.Context, cause string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("hangup cause=%s", cause)
	p.hungUp = true
	return nil
}

func (p *Provider) GetSessionVar(ctx context.Context, name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.sessionVars[name]
	return v, ok
}

func (p *Provider) SetSessionVar(ctx context.Context, name, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionVars[name] = value
	p.log("set_session_var %s=%s", name, value)
	return nil
}

func (p *Provider) Play(ctx context.Context, filePath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("play %s", filePath)
	return nil
}

func (p *Provider) PlayAndGetDigits(ctx context.Context, prompt, invalidPrompt string, minLen, maxLen, attempts int, timeout time.Duration, terminator, regex string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("play_and_get_digits prompt=%s", prompt)
	return p.nextDigitsLocked(), nil
}

func (p *Provider) ReadDigits(ctx context.Context, minLen, maxLen int, timeout time.Duration, terminator string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("read_digits")
	return p.nextDigitsLocked(), nil
}

func (p *Provider) nextDigitsLocked() string {
	if p.digitIx >= len(p.script.Digits) {
		return ""
	}
	d := p.script.Digits[p.digitIx]
	p.digitIx++
	return d
}

func (p *Provider) Record(ctx context.Context, path string, maxDuration time.Duration, silenceThreshold float64, silenceSeconds time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("record %s", path)
	return nil
}

func (p *Provider) Speak(ctx context.Context, engine, voice, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("speak engine=%s voice=%s text=%q", engine, voice, text)
	return nil
}

func (p *Provider) Bridge(ctx context.Context, dialString string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("bridge %s", dialString)
	if p.script.BridgeCause != "" {
		return p.script.BridgeCause, nil
	}
	return "NORMAL_CLEARING", nil
}

func (p *Provider) DirectoryExists(ctx context.Context, extension, domain string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.script.DirectoryExtensions[extension], nil
}

func (p *Provider) QueueDispatch(ctx context.Context, queueName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("queue_dispatch %s", queueName)
	return nil
}

func (p *Provider) TransferForEvaluation(ctx context.Context, dialplanDestination string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("transfer_for_evaluation %s", dialplanDestination)
	return nil
}

func (p *Provider) AgentSetStatus(ctx context.Context, extension, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("agent_set_status %s=%s", extension, value)
	return nil
}

func (p *Provider) AgentSetState(ctx context.Context, extension, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.agentStates[extension] = value
	p.log("agent_set_state %s=%s", extension, value)
	return nil
}

func (p *Provider) AgentSetContact(ctx context.Context, extension, contact string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log("agent_set_contact %s=%s", extension, contact)
	return nil
}

func (p *Provider) AgentRegistration(ctx context.Context, extension string) (bool, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return true, extension + "@devprovider", nil
}

func (p *Provider) AgentDoNotDisturb(ctx context.Context, extension string) (string, error) {
	return "", nil
}

func (p *Provider) AgentQueueState(ctx context.Context, extension string) (string, error) {
	return "", nil
}

func (p *Provider) GetGlobal(ctx context.Context, name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.script.Globals[name]
	return v, ok
}

func (p *Provider) CallID() string { return p.callID }

func (p *Provider) Hungup() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hungUp
}
