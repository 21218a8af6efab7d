package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/l1jgo/encounter/internal/config"
	"go.uber.org/zap"
)

// ApplicationName tags journal connections in pg_stat_activity.
const ApplicationName = "encounter-journal"

// DB is the journal's connection pool. The writer goroutine is its only
// steady user, so the pool stays small.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// poolConfig turns the journal section into a pgx pool config.
func poolConfig(cfg config.JournalConfig) (*pgxpool.Config, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("journal enabled without a dsn")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolCfg.MinConns = int32(min(cfg.MaxIdleConns, int(poolCfg.MaxConns)))
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}
	return poolCfg, nil
}

// NewDB connects the journal pool and pings it once.
func NewDB(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect journal db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping journal db: %w", err)
	}

	log.Info("journal database connected",
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.String("database", poolCfg.ConnConfig.Database),
	)
	return &DB{Pool: pool, log: log}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}
