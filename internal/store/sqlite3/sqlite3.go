// Package sqlite3 is the SQLite-backed store.Storer, the default for
// a single-instance ivrflow deployment.
package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	_ "modernc.org/sqlite"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/rakunlabs/ivrflow/internal/config"
	"github.com/rakunlabs/ivrflow/internal/crypto"
	"github.com/rakunlabs/ivrflow/internal/store/storetype"
)

var DefaultTablePrefix = "ivrflow_"

// SQLite is the SQLite store.Storer implementation.
type SQLite struct {
	db   *sql.DB
	goqu *goqu.Database

	tableCallRecords exp.IdentifierExpression
	tableReloads     exp.IdentifierExpression

	encKey atomic.Pointer[[]byte]
}

// New opens (creating if needed) the SQLite database at cfg.Datasource,
// runs pending migrations, and returns a ready SQLite store.
func New(ctx context.Context, cfg *config.StoreSQLite, encKey []byte) (*SQLite, error) {
	if cfg == nil {
		return nil, errors.New("sqlite configuration is nil")
	}
	if cfg.Datasource == "" {
		return nil, errors.New("sqlite datasource is required")
	}

	tablePrefix := DefaultTablePrefix
	if cfg.TablePrefix != nil {
		tablePrefix = *cfg.TablePrefix
	}

	migrate := cfg.Migrate
	if migrate.Table == "" {
		migrate.Table = "migrations"
	}
	if migrate.Datasource == "" {
		migrate.Datasource = cfg.Datasource
	}
	migrate.Table = tablePrefix + migrate.Table
	if migrate.Values == nil {
		migrate.Values = make(map[string]string)
	}
	migrate.Values["TABLE_PREFIX"] = tablePrefix

	if err := migrateDB(ctx, &migrate); err != nil {
		return nil, fmt.Errorf("migrate store sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Datasource)
	if err != nil {
		return nil, fmt.Errorf("open sqlite connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// A single writer connection avoids SQLITE_BUSY under concurrent
	// call-record writes; WAL mode still allows concurrent readers.
	db.SetMaxOpenConns(1)

	slog.Info("connected to ivrflow store (sqlite)")

	s := &SQLite{
		db:               db,
		goqu:             goqu.New("sqlite3", db),
		tableCallRecords: goqu.T(tablePrefix + "call_records"),
		tableReloads:     goqu.T(tablePrefix + "registry_reloads"),
	}
	s.encKey.Store(&encKey)

	return s, nil
}

// key returns the active encryption key, or nil when encryption is
// disabled.
func (s *SQLite) key() []byte {
	if k := s.encKey.Load(); k != nil {
		return *k
	}
	return nil
}

func (s *SQLite) Close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("close ivrflow store sqlite connection", "error", err)
		}
	}
}

func (s *SQLite) RecordCall(ctx context.Context, rec storetype.CallRecord) error {
	errField := rec.Error
	if key := s.key(); key != nil {
		var err error
		if errField, err = crypto.Encrypt(rec.Error, key); err != nil {
			return fmt.Errorf("encrypt call record error: %w", err)
		}
	}

	id := rec.ID
	if id == "" {
		id = ulid.Make().String()
	}

	query, _, err := s.goqu.Insert(s.tableCallRecords).Rows(goqu.Record{
		"id":            id,
		"call_id":       rec.CallID,
		"started_at":    rec.StartedAt,
		"ended_at":      rec.EndedAt,
		"final_node_id": rec.FinalNodeID,
		"result_token":  rec.ResultToken,
		"error":         errField,
	}).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert call_record query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("insert call_record: %w", err)
	}

	return nil
}

func (s *SQLite) ListCalls(ctx context.Context, limit int) ([]storetype.CallRecord, error) {
	ds := s.goqu.From(s.tableCallRecords).
		Select("id", "call_id", "started_at", "ended_at", "final_node_id", "result_token", "error").
		Order(goqu.I("started_at").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, _, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list call_records query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list call_records: %w", err)
	}
	defer rows.Close()

	var out []storetype.CallRecord
	for rows.Next() {
		var rec storetype.CallRecord
		var encErr string
		if err := rows.Scan(&rec.ID, &rec.CallID, &rec.StartedAt, &rec.EndedAt, &rec.FinalNodeID, &rec.ResultToken, &encErr); err != nil {
			return nil, fmt.Errorf("scan call_record: %w", err)
		}
		rec.Error = encErr
		if key := s.key(); key != nil && crypto.IsEncrypted(encErr) {
			if rec.Error, err = crypto.Decrypt(encErr, key); err != nil {
				return nil, fmt.Errorf("decrypt call_record error: %w", err)
			}
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

func (s *SQLite) RecordReload(ctx context.Context, rec storetype.ReloadRecord) error {
	id := rec.ID
	if id == "" {
		id = ulid.Make().String()
	}

	query, _, err := s.goqu.Insert(s.tableReloads).Rows(goqu.Record{
		"id":      id,
		"version": rec.Version,
		"source":  rec.Source,
		"error":   rec.Error,
		"at":      rec.At,
	}).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert registry_reload query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("insert registry_reload: %w", err)
	}

	return nil
}

func (s *SQLite) ListReloads(ctx context.Context, limit int) ([]storetype.ReloadRecord, error) {
	ds := s.goqu.From(s.tableReloads).
		Select("id", "version", "source", "error", "at").
		Order(goqu.I("at").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, _, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list registry_reloads query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list registry_reloads: %w", err)
	}
	defer rows.Close()

	var out []storetype.ReloadRecord
	for rows.Next() {
		var rec storetype.ReloadRecord
		if err := rows.Scan(&rec.ID, &rec.Version, &rec.Source, &rec.Error, &rec.At); err != nil {
			return nil, fmt.Errorf("scan registry_reload: %w", err)
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// RotateKey re-encrypts every call_record's Error field from oldKey to
// newKey.
func (s *SQLite) RotateKey(ctx context.Context, oldKey, newKey []byte) error {
	records, err := s.ListCalls(ctx, 0)
	if err != nil {
		return fmt.Errorf("rotate key: list call_records: %w", err)
	}

	for _, rec := range records {
		plain, err := crypto.Decrypt(rec.Error, oldKey)
		if err != nil {
			return fmt.Errorf("rotate key: decrypt %s: %w", rec.ID, err)
		}

		reenc, err := crypto.Encrypt(plain, newKey)
		if err != nil {
			return fmt.Errorf("rotate key: encrypt %s: %w", rec.ID, err)
		}

		query, _, err := s.goqu.Update(s.tableCallRecords).
			Set(goqu.Record{"error": reenc}).
			Where(goqu.I("id").Eq(rec.ID)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("rotate key: build update for %s: %w", rec.ID, err)
		}
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("rotate key: update %s: %w", rec.ID, err)
		}
	}

	s.encKey.Store(&newKey)

	return nil
}
