// Package store persists the two operational records the engine keeps
// outside of call handling itself: completed-call outcomes and registry reload
// history. Neither table is read back by the flow driver; both exist
// solely for the admin API (internal/server) to answer "did that call
// finish" and "did every instance pick up the new config".
package store

import (
	"context"

	"github.com/rakunlabs/ivrflow/internal/config"
	"github.com/rakunlabs/ivrflow/internal/store/memory"
	"github.com/rakunlabs/ivrflow/internal/store/postgres"
	"github.com/rakunlabs/ivrflow/internal/store/sqlite3"
	"github.com/rakunlabs/ivrflow/internal/store/storetype"
)

// Record and interface types are defined in storetype so the backend
// packages can depend on them without importing this dispatcher
// package. Re-exported here as aliases so callers only ever need to
// import "store".
type (
	CallRecord       = storetype.CallRecord
	ReloadRecord     = storetype.ReloadRecord
	CallRecordStorer = storetype.CallRecordStorer
	ReloadLogStorer  = storetype.ReloadLogStorer
	Storer           = storetype.Storer
	KeyRotator       = storetype.KeyRotator
)

// New builds a Storer from the process's store configuration. With
// neither Postgres nor SQLite configured, it falls back to an
// in-memory store — the zero-config / single-instance / test path.
func New(ctx context.Context, cfg config.Store, encKey []byte) (Storer, error) {
	switch {
	case cfg.Postgres != nil:
		return postgres.New(ctx, cfg.Postgres, encKey)
	case cfg.SQLite != nil:
		return sqlite3.New(ctx, cfg.SQLite, encKey)
	default:
		return memory.New(), nil
	}
}
