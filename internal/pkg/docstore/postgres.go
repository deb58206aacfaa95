package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	queryTimeout  = 3 * time.Second
	commitTimeout = 10 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (collection, id)
)`

// PostgresStore keeps every collection in one JSONB table.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the documents table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx2, schema); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

type documentRow struct {
	Collection string    `db:"collection"`
	ID         string    `db:"id"`
	Data       []byte    `db:"data"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r documentRow) document() Document {
	return Document{
		Collection: r.Collection,
		ID:         r.ID,
		Data:       r.Data,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var row documentRow
	err := s.db.GetContext(ctx2, &row, `
		SELECT collection, id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	doc := row.document()
	return &doc, nil
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rows []documentRow
	err := s.db.SelectContext(ctx2, &rows, `
		SELECT collection, id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1
		ORDER BY id
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.document())
	}
	return docs, nil
}

func (s *PostgresStore) Batch() *Batch {
	return NewBatch(s.commit)
}

func (s *PostgresStore) commit(ctx context.Context, ops []Op) error {
	ctx2, cancel := context.WithTimeout(ctx, commitTimeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, op := range ops {
		if err := applyOp(ctx2, tx, op, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func applyOp(ctx context.Context, tx *sqlx.Tx, op Op, now time.Time) error {
	switch op.Kind {
	case OpSet:
		_, err := tx.ExecContext(ctx, `
			INSERT INTO documents (collection, id, data, created_at, updated_at)
			VALUES ($1, $2, $3::jsonb, $4, $4)
			ON CONFLICT (collection, id)
			DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
		`, op.Collection, op.ID, string(op.Data), now)
		if err != nil {
			return fmt.Errorf("set %s/%s: %w", op.Collection, op.ID, err)
		}
	case OpUpdate:
		result, err := tx.ExecContext(ctx, `
			UPDATE documents
			SET data = $3::jsonb, updated_at = $4
			WHERE collection = $1 AND id = $2
		`, op.Collection, op.ID, string(op.Data), now)
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", op.Collection, op.ID, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update %s/%s: rows affected: %w", op.Collection, op.ID, err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, op.Collection, op.ID)
		}
	case OpDelete:
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM documents WHERE collection = $1 AND id = $2
		`, op.Collection, op.ID); err != nil {
			return fmt.Errorf("delete %s/%s: %w", op.Collection, op.ID, err)
		}
	default:
		return fmt.Errorf("unknown op %d", op.Kind)
	}
	return nil
}
