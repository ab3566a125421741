package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voyagen/lulutv/internal/models"
)

// Postgres implements Store on the taxonomy_snapshots table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Load(ctx context.Context, kind string) (*models.Document, error) {
	if !validKind(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT document FROM taxonomy_snapshots WHERE kind = $1`, kind,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	return decode(kind, data)
}

func (p *Postgres) Save(ctx context.Context, kind string, doc *models.Document) error {
	data, err := encode(kind, doc)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO taxonomy_snapshots (kind, document, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (kind) DO UPDATE SET
		   document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		kind, data, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", kind, err)
	}
	return nil
}
