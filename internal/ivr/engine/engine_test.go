package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/rakunlabs/ivrflow/internal/ivr/ops"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
	"github.com/rakunlabs/ivrflow/internal/store/storetype"
)

type fakeProvider struct {
	sessionVars map[string]string
	hungup      bool
	answered    bool
	hangupCause string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessionVars: map[string]string{}}
}

func (f *fakeProvider) Answer(ctx context.Context) error { f.answered = true; return nil }
func (f *fakeProvider) Hangup(ctx context.Context, cause string) error {
	f.hungup = true
	f.hangupCause = cause
	return nil
}
func (f *fakeProvider) GetSessionVar(ctx context.Context, name string) (string, bool) {
	v, ok := f.sessionVars[name]
	return v, ok
}
func (f *fakeProvider) SetSessionVar(ctx context.Context, name, value string) error {
	f.sessionVars[name] = value
	return nil
}
func (f *fakeProvider) Play(ctx context.Context, filePath string) error { return nil }
func (f *fakeProvider) PlayAndGetDigits(ctx context.Context, prompt, invalidPrompt string, minLen, maxLen, attempts int, timeout time.Duration, terminator, regex string) (string, error) {
	return "", nil
}
func (f *fakeProvider) ReadDigits(ctx context.Context, minLen, maxLen int, timeout time.Duration, terminator string) (string, error) {
	return "", nil
}
func (f *fakeProvider) Record(ctx context.Context, path string, maxDuration time.Duration, silenceThreshold float64, silenceSeconds time.Duration) error {
	return nil
}
func (f *fakeProvider) Speak(ctx context.Context, engine, voice, text string) error { return nil }
func (f *fakeProvider) Bridge(ctx context.Context, dialString string) (string, error) {
	return "", nil
}
func (f *fakeProvider) DirectoryExists(ctx context.Context, extension, domain string) (bool, error) {
	return false, nil
}
func (f *fakeProvider) QueueDispatch(ctx context.Context, queueName string) error { return nil }
func (f *fakeProvider) TransferForEvaluation(ctx context.Context, dialplanDestination string) error {
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

type fakeRecorder struct {
	recorded []storetype.CallRecord
}

func (f *fakeRecorder) RecordCall(ctx context.Context, rec storetype.CallRecord) error {
	f.recorded = append(f.recorded, rec)
	return nil
}

func loadTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	dir := t.TempDir()

	ivrPath := filepath.Join(dir, "ivrconfig.json")
	flowJSON := `{"IVRConfiguration":[{"GeneralSettingValues":[],"IVRProcessFlow":[{"id":1,"name":"start","op_code":200,"is_start":true,"edges":[]}]}]}`
	if err := os.WriteFile(ivrPath, []byte(flowJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	apiPath := filepath.Join(dir, "api.json")
	if err := os.WriteFile(apiPath, []byte(`{"result":[]}`), 0o600); err != nil {
		t.Fatal(err)
	}

	reg, err := registry.Load(registry.Files{IVRConfig: ivrPath, APICatalog: apiPath}, 1)
	if err != nil {
		t.Fatalf("registry.Load: %v", err)
	}
	return reg
}

func TestHandleCallRecordsOutcome(t *testing.T) {
	reg := loadTestRegistry(t)
	rec := &fakeRecorder{}
	e := New(reg, 10, nil, nil, nil, rec)

	p := newFakeProvider()
	if err := e.HandleCall(context.Background(), p, "15551234567", "Jane Caller", "example.com"); err != nil {
		t.Fatalf("HandleCall: %v", err)
	}

	if len(rec.recorded) != 1 {
		t.Fatalf("recorded %d calls, want 1", len(rec.recorded))
	}
	got := rec.recorded[0]
	if got.CallID != "call-1" {
		t.Fatalf("CallID = %q, want call-1", got.CallID)
	}
	if got.ResultToken != "S" {
		t.Fatalf("ResultToken = %q, want S", got.ResultToken)
	}
	if got.Error != "" {
		t.Fatalf("Error = %q, want empty", got.Error)
	}
	if !p.answered {
		t.Fatal("call was never answered")
	}
	if !p.hungup || p.hangupCause != "NORMAL_CLEARING" {
		t.Fatalf("hungup = %v, cause = %q, want NORMAL_CLEARING release", p.hungup, p.hangupCause)
	}
}

func TestHandleCallWithoutRecorder(t *testing.T) {
	reg := loadTestRegistry(t)
	e := New(reg, 10, nil, nil, nil, nil)

	p := newFakeProvider()
	if err := e.HandleCall(context.Background(), p, "", "", ""); err != nil {
		t.Fatalf("HandleCall: %v", err)
	}
}

func TestReload(t *testing.T) {
	reg1 := loadTestRegistry(t)
	reg2 := loadTestRegistry(t)
	e := New(reg1, 10, nil, nil, nil, nil)

	if e.Registry() != reg1 {
		t.Fatal("Registry() should return the initial registry")
	}

	e.Reload(reg2)
	if e.Registry() != reg2 {
		t.Fatal("Registry() should return the swapped-in registry")
	}
}
