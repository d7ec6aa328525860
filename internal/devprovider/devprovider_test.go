package devprovider

import (
	"context"
	"testing"
)

func TestScriptedDigitsInOrder(t *testing.T) {
	p := New("call-1", Script{Digits: []string{"1234", "9"}})
	ctx := context.Background()

	got, err := p.PlayAndGetDigits(ctx, "enter pin", "", 4, 4, 3, 0, "#", "")
	if err != nil {
		t.Fatalf("PlayAndGetDigits: %v", err)
	}
	if got != "1234" {
		t.Fatalf("got %q, want 1234", got)
	}

	got, _ = p.ReadDigits(ctx, 1, 1, 0, "#")
	if got != "9" {
		t.Fatalf("got %q, want 9", got)
	}

	got, _ = p.ReadDigits(ctx, 1, 1, 0, "#")
	if got != "" {
		t.Fatalf("got %q, want empty after exhausting script", got)
	}
}

func TestHangupMarksHungup(t *testing.T) {
	p := New("call-1", Script{})
	if p.Hungup() {
		t.Fatal("should not start hung up")
	}
	if err := p.Hangup(context.Background(), "NORMAL_CLEARING"); err != nil {
		t.Fatalf("Hangup: %v", err)
	}
	if !p.Hungup() {
		t.Fatal("should be hung up after Hangup")
	}
}

func TestBridgeUsesScriptedCause(t *testing.T) {
	p := New("call-1", Script{BridgeCause: "USER_BUSY"})
	cause, err := p.Bridge(context.Background(), "sofia/gateway/2001")
	if err != nil {
		t.Fatalf("Bridge: %v", err)
	}
	if cause != "USER_BUSY" {
		t.Fatalf("cause = %q, want USER_BUSY", cause)
	}
}

func TestEventsRecordCalls(t *testing.T) {
	p := New("call-1", Script{})
	ctx := context.Background()
	_ = p.Answer(ctx)
	_ = p.Play(ctx, "welcome.wav")

	if len(p.Events) != 2 {
		t.Fatalf("Events = %v, want 2 entries", p.Events)
	}
}
