package flow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
)

// fakeProvider implements provider.Provider with no-op telephony
// primitives, enough to drive the flow loop in tests.
type fakeProvider struct {
	hungup bool

	playedFiles  []string
	hangupCause  string
	hungupCalled bool
	spokenText   string
}

func (f *fakeProvider) Answer(ctx context.Context) error { return nil }
func (f *fakeProvider) Hangup(ctx context.Context, cause string) error {
	f.hungupCalled = true
	f.hangupCause = cause
	return nil
}
func (f *fakeProvider) GetSessionVar(ctx context.Context, name string) (string, bool) {
	return "", false
}
func (f *fakeProvider) SetSessionVar(ctx context.Context, name, value string) error { return nil }
func (f *fakeProvider) Play(ctx context.Context, filePath string) error {
	f.playedFiles = append(f.playedFiles, filePath)
	return nil
}
func (f *fakeProvider) PlayAndGetDigits(ctx context.Context, prompt, invalidPrompt string, minLen, maxLen, attempts int, timeout time.Duration, terminator, regex string) (string, error) {
	return "", nil
}
func (f *fakeProvider) ReadDigits(ctx context.Context, minLen, maxLen int, timeout time.Duration, terminator string) (string, error) {
	return "", nil
}
func (f *fakeProvider) Record(ctx context.Context, path string, maxDuration time.Duration, silenceThreshold float64, silenceSeconds time.Duration) error {
	return nil
}
func (f *fakeProvider) Speak(ctx context.Context, engine, voice, text string) error {
	f.spokenText = text
	return nil
}
func (f *fakeProvider) Bridge(ctx context.Context, dialString string) (string, error) {
	return "", nil
}
func (f *fakeProvider) DirectoryExists(ctx context.Context, extension, domain string) (bool, error) {
	return false, nil
}
func (f *fakeProvider) QueueDispatch(ctx context.Context, queueName string) error { return nil }
func (f *fakeProvider) TransferForEvaluation(ctx context.Context, dest string) error {
	return nil
}
func (f *fakeProvider) AgentSetStatus(ctx context.Context, extension, value string) error  { return nil }
func (f *fakeProvider) AgentSetState(ctx context.Context, extension, value string) error   { return nil }
func (f *fakeProvider) AgentSetContact(ctx context.Context, extension, contact string) error {
	return nil
}
func (f *fakeProvider) AgentRegistration(ctx context.Context, extension string) (bool, string, error) {
	return false, "", nil
}
func (f *fakeProvider) AgentDoNotDisturb(ctx context.Context, extension string) (string, error) {
	return "", nil
}
func (f *fakeProvider) AgentQueueState(ctx context.Context, extension string) (string, error) {
	return "", nil
}
func (f *fakeProvider) GetGlobal(ctx context.Context, name string) (string, bool) { return "", false }
func (f *fakeProvider) CallID() string                                           { return "call-1" }
func (f *fakeProvider) Hungup() bool                                             { return f.hungup }

const (
	testOpPlay      registry.OpCode = 9001
	testOpTerminate registry.OpCode = 9002
	testOpPanic     registry.OpCode = 9003
)

func init() {
	RegisterHandler(testOpPlay, func(ctx context.Context, cc *CallContext, node registry.Node) (string, error) {
		return "S", nil
	})
	RegisterHandler(testOpTerminate, func(ctx context.Context, cc *CallContext, node registry.Node) (string, error) {
		cc.Terminated = true
		return "", nil
	})
	RegisterHandler(testOpPanic, func(ctx context.Context, cc *CallContext, node registry.Node) (string, error) {
		panic("boom")
	})
}

func testRegistry(t *testing.T, nodes ...registry.Node) *registry.Registry {
	t.Helper()
	return buildRegistryFromNodes(t, nodes...)
}

func TestDriverRunLinearFlow(t *testing.T) {
	nodes := []registry.Node{
		{ID: 1, OpCode: testOpPlay, IsStart: true, Edges: []registry.EdgeSpec{{TargetID: 2, InputKeys: "S"}}},
		{ID: 2, OpCode: testOpTerminate, Edges: nil},
	}
	reg := testRegistry(t, nodes...)

	cc := &CallContext{Registry: reg, Provider: &fakeProvider{}, Store: newTestStore()}
	d := NewDriver(10)

	if err := d.Run(context.Background(), cc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !cc.Terminated {
		t.Fatal("expected call to terminate")
	}
}

func TestDriverRunDeadEnd(t *testing.T) {
	nodes := []registry.Node{
		{ID: 1, OpCode: testOpPlay, IsStart: true, Edges: []registry.EdgeSpec{{TargetID: 1, InputKeys: "F"}}},
	}
	reg := testRegistry(t, nodes...)

	cc := &CallContext{Registry: reg, Provider: &fakeProvider{}, Store: newTestStore()}
	d := NewDriver(10)

	err := d.Run(context.Background(), cc)
	if err == nil || !strings.Contains(err.Error(), "dead end") {
		t.Fatalf("expected dead-end error, got %v", err)
	}
}

func TestDriverRunLoopProtection(t *testing.T) {
	nodes := []registry.Node{
		{ID: 1, OpCode: testOpPlay, IsStart: true, Edges: []registry.EdgeSpec{{TargetID: 1, InputKeys: "S"}}},
	}
	reg := testRegistry(t, nodes...)

	cc := &CallContext{Registry: reg, Provider: &fakeProvider{}, Store: newTestStore()}
	d := NewDriver(5)

	err := d.Run(context.Background(), cc)
	if err == nil || !strings.Contains(err.Error(), "exceeded") {
		t.Fatalf("expected loop-protection error, got %v", err)
	}
}

func TestDriverRunHandlerPanicBecomesFatalError(t *testing.T) {
	nodes := []registry.Node{
		{ID: 1, OpCode: testOpPanic, IsStart: true, Edges: []registry.EdgeSpec{{TargetID: 1, InputKeys: "S"}}},
	}
	reg := testRegistry(t, nodes...)

	cc := &CallContext{Registry: reg, Provider: &fakeProvider{}, Store: newTestStore()}
	d := NewDriver(10)

	err := d.Run(context.Background(), cc)
	if err == nil || !strings.Contains(err.Error(), "handler panic") {
		t.Fatalf("expected handler-panic error, got %v", err)
	}
}

func TestDriverRunStopsWhenProviderHungUp(t *testing.T) {
	nodes := []registry.Node{
		{ID: 1, OpCode: testOpPlay, IsStart: true, Edges: []registry.EdgeSpec{{TargetID: 1, InputKeys: "S"}}},
	}
	reg := testRegistry(t, nodes...)

	cc := &CallContext{Registry: reg, Provider: &fakeProvider{hungup: true}, Store: newTestStore()}
	d := NewDriver(10)

	if err := d.Run(context.Background(), cc); err != nil {
		t.Fatalf("Run with hung-up provider should return cleanly, got %v", err)
	}
}

func TestDriverRunClosedForBusinessHoursPlaysAudioAndHangsUp(t *testing.T) {
	nodes := []registry.Node{
		{ID: 1, OpCode: testOpPlay, IsStart: true, Edges: []registry.EdgeSpec{{TargetID: 1, InputKeys: "S"}}},
	}
	settings := []map[string]any{
		{"SettingId": 8, "SettingnKey": "IVRUnavailablityAudio", "SettingValue": `"closed.wav"`},
		{"SettingId": 6, "SettingnKey": "IVRAvailablitySchedule", "SettingValue": `{}`},
	}
	reg := buildRegistryFromConfig(t, settings, nodes...)

	p := &fakeProvider{}
	cc := &CallContext{Registry: reg, Provider: p, Store: newTestStore()}
	d := NewDriver(10)

	if err := d.Run(context.Background(), cc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(p.playedFiles) != 1 || p.playedFiles[0] != "closed.wav" {
		t.Fatalf("playedFiles = %v, want [closed.wav]", p.playedFiles)
	}
	if !p.hungupCalled {
		t.Fatal("expected the call to be hung up")
	}
	if cc.CurrentNodeID == nodes[0].ID {
		t.Fatal("expected the start node handler never to run")
	}
}

func TestDriverRunReentryResumesAtFirstEdgeWithoutRerunningHandler(t *testing.T) {
	var ranEvaluationHandler bool
	const testOpEvaluation registry.OpCode = 9004
	RegisterHandler(testOpEvaluation, func(ctx context.Context, cc *CallContext, node registry.Node) (string, error) {
		ranEvaluationHandler = true
		return "S", nil
	})

	nodes := []registry.Node{
		{ID: 1, OpCode: testOpEvaluation, IsStart: true, Edges: []registry.EdgeSpec{{TargetID: 2}}},
		{ID: 2, OpCode: testOpTerminate, Edges: nil},
	}
	reg := testRegistry(t, nodes...)

	cc := &CallContext{Registry: reg, Provider: &fakeProvider{}, Store: newTestStore(), ReentryNodeID: 1}
	d := NewDriver(10)

	if err := d.Run(context.Background(), cc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ranEvaluationHandler {
		t.Fatal("re-entry must not re-run the transferred-from node's handler")
	}
	if !cc.Terminated {
		t.Fatal("expected the flow to resume at node 1's first edge and reach the terminate node")
	}
	if cc.ReentryNodeID != 0 {
		t.Fatalf("ReentryNodeID = %d, want 0 after being consumed", cc.ReentryNodeID)
	}
}
