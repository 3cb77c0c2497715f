package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/aluiziolira/books-etl/models"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS books (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	title              TEXT,
	category           TEXT,
	price_gbp          REAL,
	price_usd          REAL,
	price_category_usd TEXT,
	rating             INTEGER,
	availability       TEXT,
	in_stock           INTEGER,
	stock_quantity     INTEGER,
	upc                TEXT,
	product_page_url   TEXT,
	description        TEXT,
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
)`

var sqliteInsert = "INSERT INTO books (" + strings.Join(columns, ", ") + ") VALUES (" +
	strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) InsertBooks(ctx context.Context, records []models.Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteInsert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, PrepareRow(r)...); err != nil {
			return 0, eris.Wrapf(err, "store: insert row %d", i+1)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	zap.L().Info("inserted books", zap.String("driver", "sqlite"), zap.Int("rows", len(records)))
	return len(records), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
