// Package storetype holds the record shapes and storage interfaces
// shared by every store backend (postgres, sqlite3, memory) and by the
// top-level store.New dispatcher. It is a separate, leaf package so the
// backends can depend on these types without importing the dispatcher
// package that in turn depends on the backends.
package storetype

import (
	"context"
	"time"
)

// CallRecord is one row of the call-records table: the outcome of one completed call, written once after
// Driver.Run returns.
type CallRecord struct {
	ID          string
	CallID      string
	StartedAt   time.Time
	EndedAt     time.Time
	FinalNodeID int
	ResultToken string
	Error       string
}

// ReloadRecord is one row of the registry-reload-log table: one
// attempt to load a new flow graph / API catalog, successful or not.
type ReloadRecord struct {
	ID      string
	Version int
	Source  string
	Error   string
	At      time.Time
}

// CallRecordStorer persists and lists completed-call outcomes.
type CallRecordStorer interface {
	RecordCall(ctx context.Context, rec CallRecord) error
	ListCalls(ctx context.Context, limit int) ([]CallRecord, error)
}

// ReloadLogStorer persists and lists registry reload attempts.
type ReloadLogStorer interface {
	RecordReload(ctx context.Context, rec ReloadRecord) error
	ListReloads(ctx context.Context, limit int) ([]ReloadRecord, error)
}

// Storer is the full persistence surface the admin server depends on.
type Storer interface {
	CallRecordStorer
	ReloadLogStorer
	Close()
}

// KeyRotator is implemented by backends that persist encrypted fields
// at rest (postgres, sqlite3) and can therefore re-encrypt them under
// a new key. The in-memory backend does not implement it; callers
// type-assert for it and reject rotation otherwise.
type KeyRotator interface {
	RotateKey(ctx context.Context, oldKey, newKey []byte) error
}
