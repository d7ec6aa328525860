// Package memory is the zero-configuration store.Storer: an in-memory
// ring buffer good enough for a single-instance deployment or a test
// that wants a real Storer without standing up a database.
package memory

import (
	"context"
	"sync"

	"github.com/rakunlabs/ivrflow/internal/store/storetype"
)

// maxRecords bounds each ring buffer so a long-running process with no
// real database configured doesn't grow unbounded.
const maxRecords = 1000

// Memory is an in-process, non-persistent Storer.
type Memory struct {
	mu      sync.Mutex
	calls   []storetype.CallRecord
	reloads []storetype.ReloadRecord
}

// New creates an empty Memory store.
func New() *Memory {
	return &Memory{}
}

func (m *Memory) RecordCall(_ context.Context, rec storetype.CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, rec)
	if len(m.calls) > maxRecords {
		m.calls = m.calls[len(m.calls)-maxRecords:]
	}
	return nil
}

func (m *Memory) ListCalls(_ context.Context, limit int) ([]storetype.CallRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lastN(m.calls, limit), nil
}

func (m *Memory) RecordReload(_ context.Context, rec storetype.ReloadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads = append(m.reloads, rec)
	if len(m.reloads) > maxRecords {
		m.reloads = m.reloads[len(m.reloads)-maxRecords:]
	}
	return nil
}

func (m *Memory) ListReloads(_ context.Context, limit int) ([]storetype.ReloadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lastN(m.reloads, limit), nil
}

func (m *Memory) Close() {}

func lastN[T any](items []T, limit int) []T {
	if limit <= 0 || limit >= len(items) {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}
	out := make([]T, limit)
	copy(out, items[len(items)-limit:])
	return out
}
