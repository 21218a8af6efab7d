package persist

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// VersionTable records which journal migrations have been applied. It is
// named apart from goose's default so the journal can share a database
// with other goose-managed schemas.
const VersionTable = "journal_schema_version"

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrations embed.FS

// SchemaVersion returns the newest journal migration embedded in the binary.
func SchemaVersion() (int64, error) {
	names, err := fs.Glob(migrations, migrationsDir+"/*.sql")
	if err != nil {
		return 0, err
	}
	var latest int64
	for _, name := range names {
		v, err := goose.NumericComponent(path.Base(name))
		if err != nil {
			return 0, fmt.Errorf("migration %s: %w", name, err)
		}
		latest = max(latest, v)
	}
	return latest, nil
}

// RunMigrations brings the journal schema up to date and returns the version
// now applied.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) (int64, error) {
	goose.SetLogger(gooseLog{log.Named("migrate").Sugar()})
	goose.SetBaseFS(migrations)
	goose.SetTableName(VersionTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("set dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return 0, fmt.Errorf("run migrations: %w", err)
	}
	v, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	log.Info("journal schema ready", zap.Int64("version", v), zap.String("table", VersionTable))
	return v, nil
}

// gooseLog routes goose output to zap at debug level.
type gooseLog struct{ s *zap.SugaredLogger }

func (l gooseLog) Printf(format string, v ...any) {
	l.s.Debugf(strings.TrimSuffix(format, "\n"), v...)
}

func (l gooseLog) Fatalf(format string, v ...any) {
	l.s.Fatalf(strings.TrimSuffix(format, "\n"), v...)
}
