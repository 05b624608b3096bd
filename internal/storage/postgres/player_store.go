// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pitchside/harvester/internal/harvest"
)

// statTables are the tables summarized by TableStats.
var statTables = []string{"countries", "competitions", "clubs", "players", "matches"}

const insertPlayerSQL = `INSERT INTO players (name, age, club) VALUES ($1, $2, $3)`

// Config controls the Postgres connection pool used for player rows.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PlayerStore implements harvest.PlayerStore on a pgx pool.
type PlayerStore struct {
	pool   db
	logger *zap.Logger
}

// NewPlayerStore connects a pool using the provided config.
func NewPlayerStore(ctx context.Context, cfg Config, logger *zap.Logger) (*PlayerStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PlayerStore{pool: pool, logger: logger}, nil
}

// NewPlayerStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewPlayerStoreWithPool(pool db, logger *zap.Logger) (*PlayerStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &PlayerStore{pool: pool, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (s *PlayerStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// BulkInsert inserts player rows one statement at a time. Per-row failures
// are logged and skipped so a partial insert never fails the whole batch;
// only a fully failed batch returns an error.
func (s *PlayerStore) BulkInsert(ctx context.Context, rows []harvest.PlayerRow) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("player store is not configured")
	}
	if len(rows) == 0 {
		return nil
	}
	inserted := 0
	for _, row := range rows {
		if _, err := s.pool.Exec(ctx, insertPlayerSQL, row.Name, row.Age, row.Club); err != nil {
			s.logger.Warn("insert player failed",
				zap.String("name", row.Name),
				zap.Error(err),
			)
			continue
		}
		inserted++
	}
	if inserted == 0 {
		return fmt.Errorf("insert players: all %d rows failed", len(rows))
	}
	return nil
}

// TableStats returns row counts for the main tables. A table that cannot be
// counted reports zero, matching the read-only summary the source exposes.
func (s *PlayerStore) TableStats(ctx context.Context) (map[string]int64, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("player store is not configured")
	}
	stats := make(map[string]int64, len(statTables))
	for _, table := range statTables {
		var count int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
		if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
			s.logger.Warn("table count failed", zap.String("table", table), zap.Error(err))
			stats[table] = 0
			continue
		}
		stats[table] = count
	}
	return stats, nil
}
