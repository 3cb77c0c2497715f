package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aluiziolira/books-etl/models"
)

// Pool is the subset of *pgxpool.Pool the store needs.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects a small pool to connString and pings it.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	zap.L().Info("connected to postgres",
		zap.String("host", pgxCfg.ConnConfig.Host),
		zap.String("database", pgxCfg.ConnConfig.Database),
	)
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS books (
	id                 BIGSERIAL PRIMARY KEY,
	title              VARCHAR(500),
	category           VARCHAR(100),
	price_gbp          NUMERIC(10, 2),
	price_usd          NUMERIC(10, 2),
	price_category_usd VARCHAR(50),
	rating             INTEGER,
	availability       VARCHAR(100),
	in_stock           SMALLINT,
	stock_quantity     INTEGER,
	upc                VARCHAR(50),
	product_page_url   TEXT,
	description        TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`

var postgresInsert = fmt.Sprintf(
	"INSERT INTO books (%s) VALUES (%s)",
	strings.Join(columns, ", "),
	placeholders(len(columns)),
)

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(parts, ", ")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

func (s *PostgresStore) InsertBooks(ctx context.Context, records []models.Record) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin tx")
	}

	for i, r := range records {
		if _, err := tx.Exec(ctx, postgresInsert, PrepareRow(r)...); err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				zap.L().Error("postgres rollback failed", zap.Error(rbErr))
			}
			return 0, eris.Wrapf(err, "store: insert row %d", i+1)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit")
	}
	zap.L().Info("inserted books", zap.String("driver", "postgres"), zap.Int("rows", len(records)))
	return len(records), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
