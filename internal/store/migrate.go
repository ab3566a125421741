package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/voyagen/lulutv/internal/log"
)

// WaitReady pings the database until it answers or attempts run out.
// Containers often start the app before Postgres accepts connections.
func WaitReady(ctx context.Context, dsn string, attempts int) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	logger := log.WithComponent("store")
	delay := 250 * time.Millisecond
	for i := 1; ; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			return nil
		}
		if i >= attempts {
			return fmt.Errorf("database not ready after %d attempts: %w", attempts, err)
		}
		logger.Warn().Err(err).Str("event", "db.wait").Int("attempt", i).Msg("database not ready")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay < 4*time.Second {
			delay *= 2
		}
	}
}

// RunMigrations applies SQL migrations from migrationsPath (e.g. "file://migrations").
func RunMigrations(dsn string, migrationsPath string) error {
	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate.Up: %w", err)
	}
	return nil
}
