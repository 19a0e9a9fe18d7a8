package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/yourname/commerce-datagen/internal/config"
	"github.com/yourname/commerce-datagen/internal/metrics"
	"github.com/yourname/commerce-datagen/internal/retry"
)

// PGStore implements SeedStore on PostgreSQL.
type PGStore struct {
	db       *sql.DB
	users    string
	products string
}

// Connect opens and pings Postgres, retrying per policy. The returned store
// holds a pool for its whole lifetime; callers Close it when done.
func Connect(ctx context.Context, cfg *config.PostgresConfig, policy retry.Policy, log *zap.Logger) (*PGStore, error) {
	db, err := retry.Do(ctx, policy, log, "postgres", func(ctx context.Context) (*sql.DB, error) {
		db, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return NewPGStore(db, cfg.Schema), nil
}

// NewPGStore wraps an open handle. Tables are looked up in schema.
func NewPGStore(db *sql.DB, schema string) *PGStore {
	return &PGStore{
		db:       db,
		users:    pgx.Identifier{schema, "users"}.Sanitize(),
		products: pgx.Identifier{schema, "products"}.Sanitize(),
	}
}

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) InsertSeed(ctx context.Context, u *User, p *Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (username, password) VALUES ($1, $2) RETURNING id`, s.users),
		u.Username, u.Password,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (name, description, price) VALUES ($1, $2, $3) RETURNING id`, s.products),
		p.Name, p.Description, p.Price,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	metrics.IncRow("users", "insert")
	metrics.IncRow("products", "insert")
	return nil
}

func (s *PGStore) UpdateSeed(ctx context.Context, userID int64, username string, productID int64, productName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET username = $1 WHERE id = $2`, s.users), username, userID); err != nil {
		return fmt.Errorf("update user %d: %w", userID, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET name = $1 WHERE id = $2`, s.products), productName, productID); err != nil {
		return fmt.Errorf("update product %d: %w", productID, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	metrics.IncRow("users", "update")
	metrics.IncRow("products", "update")
	return nil
}
