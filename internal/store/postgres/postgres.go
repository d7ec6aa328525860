// Package postgres is the PostgreSQL-backed store.Storer: call-record
// and registry-reload-log persistence.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/rakunlabs/ivrflow/internal/config"
	"github.com/rakunlabs/ivrflow/internal/crypto"
	"github.com/rakunlabs/ivrflow/internal/store/storetype"
)

var (
	ConnMaxLifetime    = 15 * time.Minute
	MaxIdleConns       = 3
	MaxOpenConns       = 3
	DefaultTablePrefix = "ivrflow_"
)

// Postgres is the PostgreSQL store.Storer implementation.
type Postgres struct {
	db   *sql.DB
	goqu *goqu.Database

	tableCallRecords exp.IdentifierExpression
	tableReloads     exp.IdentifierExpression

	encKey atomic.Pointer[[]byte]
}

// New opens a PostgreSQL connection, runs pending migrations, and
// returns a ready Postgres store. encKey, if non-nil, is used to
// encrypt/decrypt CallRecord.Error at rest (internal/crypto).
func New(ctx context.Context, cfg *config.StorePostgres, encKey []byte) (*Postgres, error) {
	if cfg == nil {
		return nil, errors.New("postgres configuration is nil")
	}
	if cfg.Datasource == "" {
		return nil, errors.New("postgres datasource is required")
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
	if migrate.Schema == "" {
		migrate.Schema = cfg.Schema
	}
	migrate.Table = tablePrefix + migrate.Table
	if migrate.Values == nil {
		migrate.Values = make(map[string]string)
	}
	migrate.Values["TABLE_PREFIX"] = tablePrefix

	if err := migrateDB(ctx, &migrate); err != nil {
		return nil, fmt.Errorf("migrate store postgres: %w", err)
	}

	db, err := sql.Open("pgx", cfg.Datasource)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if cfg.Schema != "" {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", cfg.Schema)); err != nil {
			db.Close()
			return nil, fmt.Errorf("set search_path: %w", err)
		}
	}

	if cfg.ConnMaxLifetime != nil {
		ConnMaxLifetime = *cfg.ConnMaxLifetime
	}
	if cfg.MaxIdleConns != nil {
		MaxIdleConns = *cfg.MaxIdleConns
	}
	if cfg.MaxOpenConns != nil {
		MaxOpenConns = *cfg.MaxOpenConns
	}

	db.SetConnMaxLifetime(ConnMaxLifetime)
	db.SetMaxIdleConns(MaxIdleConns)
	db.SetMaxOpenConns(MaxOpenConns)

	slog.Info("connected to ivrflow store (postgres)")

	p := &Postgres{
		db:               db,
		goqu:             goqu.New("postgres", db),
		tableCallRecords: goqu.T(tablePrefix + "call_records"),
		tableReloads:     goqu.T(tablePrefix + "registry_reloads"),
	}
	p.encKey.Store(&encKey)

	return p, nil
}

// key returns the active encryption key, or nil when encryption is
// disabled.
func (p *Postgres) key() []byte {
	if k := p.encKey.Load(); k != nil {
		return *k
	}
	return nil
}

func (p *Postgres) Close() {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			slog.Error("close ivrflow store postgres connection", "error", err)
		}
	}
}

func (p *Postgres) RecordCall(ctx context.Context, rec storetype.CallRecord) error {
	errField := rec.Error
	if key := p.key(); key != nil {
		var err error
		if errField, err = crypto.Encrypt(rec.Error, key); err != nil {
			return fmt.Errorf("encrypt call record error: %w", err)
		}
	}

	id := rec.ID
	if id == "" {
		id = ulid.Make().String()
	}

	query, _, err := p.goqu.Insert(p.tableCallRecords).Rows(goqu.Record{
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

	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("insert call_record: %w", err)
	}

	return nil
}

func (p *Postgres) ListCalls(ctx context.Context, limit int) ([]storetype.CallRecord, error) {
	ds := p.goqu.From(p.tableCallRecords).
		Select("id", "call_id", "started_at", "ended_at", "final_node_id", "result_token", "error").
		Order(goqu.I("started_at").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, _, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list call_records query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query)
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
		if key := p.key(); key != nil && crypto.IsEncrypted(encErr) {
			if rec.Error, err = crypto.Decrypt(encErr, key); err != nil {
				return nil, fmt.Errorf("decrypt call_record error: %w", err)
			}
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

func (p *Postgres) RecordReload(ctx context.Context, rec storetype.ReloadRecord) error {
	id := rec.ID
	if id == "" {
		id = ulid.Make().String()
	}

	query, _, err := p.goqu.Insert(p.tableReloads).Rows(goqu.Record{
		"id":      id,
		"version": rec.Version,
		"source":  rec.Source,
		"error":   rec.Error,
		"at":      rec.At,
	}).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert registry_reload query: %w", err)
	}

	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("insert registry_reload: %w", err)
	}

	return nil
}

func (p *Postgres) ListReloads(ctx context.Context, limit int) ([]storetype.ReloadRecord, error) {
	ds := p.goqu.From(p.tableReloads).
		Select("id", "version", "source", "error", "at").
		Order(goqu.I("at").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, _, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list registry_reloads query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query)
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
func (p *Postgres) RotateKey(ctx context.Context, oldKey, newKey []byte) error {
	records, err := p.ListCalls(ctx, 0)
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

		query, _, err := p.goqu.Update(p.tableCallRecords).
			Set(goqu.Record{"error": reenc}).
			Where(goqu.I("id").Eq(rec.ID)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("rotate key: build update for %s: %w", rec.ID, err)
		}
		if _, err := p.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("rotate key: update %s: %w", rec.ID, err)
		}
	}

	p.encKey.Store(&newKey)

	return nil
}
