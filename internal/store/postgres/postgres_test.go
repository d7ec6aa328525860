package postgres

import (
	"os"
	"testing"
	"time"

	"github.com/rakunlabs/ivrflow/internal/config"
	"github.com/rakunlabs/ivrflow/internal/crypto"
	"github.com/rakunlabs/ivrflow/internal/store/storetype"
)

// testDatasource returns the datasource from IVRFLOW_TEST_POSTGRES_DSN,
// skipping the test when it isn't set. These tests need a reachable
// PostgreSQL instance and are not run as part of the default unit-test
// pass.
func testDatasource(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("IVRFLOW_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("IVRFLOW_TEST_POSTGRES_DSN not set, skipping postgres integration test")
	}
	return dsn
}

func newTestStore(t *testing.T, encKey []byte) *Postgres {
	t.Helper()

	prefix := "ivrflow_test_"
	cfg := &config.StorePostgres{
		Datasource:  testDatasource(t),
		TablePrefix: &prefix,
	}

	p, err := New(t.Context(), cfg, encKey)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(p.Close)

	return p
}

func TestRecordAndListCallsRoundTrip(t *testing.T) {
	p := newTestStore(t, nil)

	rec := storetype.CallRecord{
		CallID:      "call-1",
		StartedAt:   time.Now().UTC().Truncate(time.Second),
		EndedAt:     time.Now().UTC().Truncate(time.Second),
		FinalNodeID: 7,
		ResultToken: "S",
	}
	if err := p.RecordCall(t.Context(), rec); err != nil {
		t.Fatalf("RecordCall: %v", err)
	}

	calls, err := p.ListCalls(t.Context(), 0)
	if err != nil {
		t.Fatalf("ListCalls: %v", err)
	}
	if len(calls) == 0 {
		t.Fatal("ListCalls returned no rows")
	}
}

func TestRecordCallEncryptsErrorField(t *testing.T) {
	key, err := crypto.DeriveKey("unit-test-passphrase")
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	p := newTestStore(t, key)

	if err := p.RecordCall(t.Context(), storetype.CallRecord{CallID: "call-err", Error: "boom"}); err != nil {
		t.Fatalf("RecordCall: %v", err)
	}

	calls, err := p.ListCalls(t.Context(), 0)
	if err != nil {
		t.Fatalf("ListCalls: %v", err)
	}

	var found bool
	for _, c := range calls {
		if c.CallID == "call-err" {
			found = true
			if c.Error != "boom" {
				t.Fatalf("Error = %q, want boom", c.Error)
			}
		}
	}
	if !found {
		t.Fatal("call-err record not found")
	}
}

func TestRotateKeyReencryptsExistingRows(t *testing.T) {
	oldKey, _ := crypto.DeriveKey("old-passphrase")
	p := newTestStore(t, oldKey)

	if err := p.RecordCall(t.Context(), storetype.CallRecord{CallID: "call-rotate", Error: "secret message"}); err != nil {
		t.Fatalf("RecordCall: %v", err)
	}

	newKey, _ := crypto.DeriveKey("new-passphrase")
	if err := p.RotateKey(t.Context(), oldKey, newKey); err != nil {
		t.Fatalf("RotateKey: %v", err)
	}

	calls, err := p.ListCalls(t.Context(), 0)
	if err != nil {
		t.Fatalf("ListCalls: %v", err)
	}

	for _, c := range calls {
		if c.CallID == "call-rotate" && c.Error != "secret message" {
			t.Fatalf("Error = %q, want secret message", c.Error)
		}
	}
}
