// Package postgres implements the repositories on PostgreSQL through gorm.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"userapi/internal/gateway"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	connectAttempts = 3
	connectBackoff  = time.Second
)

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxConns int
	MinConns int
}

// Connect opens a pooled connection, retrying a few times so the service
// can start alongside a database that is still coming up.
func Connect(ctx context.Context, databaseURL string, pool PoolConfig) (*gorm.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := open(ctx, databaseURL, pool)
		if err == nil {
			slog.InfoContext(ctx, "postgres connected", "attempt", attempt)
			return db, nil
		}
		lastErr = err
		slog.WarnContext(ctx, "postgres connect failed",
			"attempt", attempt,
			"max_attempts", connectAttempts,
			"error", err,
		)
		if attempt == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	return nil, fmt.Errorf("connecting to postgres after %d attempts: %w", connectAttempts, lastErr)
}

func open(ctx context.Context, databaseURL string, pool PoolConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if pool.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxConns)
	}
	if pool.MinConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MinConns)
	}
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RunMigrations applies the embedded SQL files in lexical order. Every
// statement is idempotent so this runs on each start.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := db.WithContext(ctx).Exec(string(raw)).Error; err != nil {
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		slog.InfoContext(ctx, "migration applied", "migration", name)
	}
	return nil
}

// translate maps gorm errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return gateway.ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", gateway.ErrConflict, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", gateway.ErrRecordNotFound, err)
	default:
		return err
	}
}
