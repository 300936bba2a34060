// SQLiteStore backs the standalone-mode apply path (spec.md 4.7): when no
// orchestrator is reachable, Claims are still durably recorded locally
// instead of silently discarded on process restart. modernc.org/sqlite is
// pure Go, so this adds no cgo dependency to the control plane binary.
package claimstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store against a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at path
// and ensures its schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS claims (
			product TEXT NOT NULL,
			namespace TEXT NOT NULL,
			name TEXT NOT NULL,
			body TEXT NOT NULL,
			PRIMARY KEY (product, namespace, name)
		)`)
	if err != nil {
		return fmt.Errorf("ensure claims table: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) GetClaim(ctx context.Context, key Key) (*unstructured.Unstructured, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT body FROM claims WHERE product = ? AND namespace = ? AND name = ?`,
		key.Product, key.Namespace, key.Name)

	var body string
	if err := row.Scan(&body); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal claim: %w", err)
	}
	return &unstructured.Unstructured{Object: obj}, nil
}

func (s *SQLiteStore) ApplyClaim(ctx context.Context, key Key, claim *unstructured.Unstructured) (ApplyOutcome, error) {
	body, err := json.Marshal(claim.Object)
	if err != nil {
		return 0, fmt.Errorf("marshal claim: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO claims (product, namespace, name, body) VALUES (?, ?, ?, ?)
		ON CONFLICT(product, namespace, name) DO UPDATE SET body = excluded.body`,
		key.Product, key.Namespace, key.Name, string(body))
	if err != nil {
		return 0, fmt.Errorf("upsert claim: %w", err)
	}
	return StandaloneOnly, nil
}

func (s *SQLiteStore) DeleteClaim(ctx context.Context, key Key) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM claims WHERE product = ? AND namespace = ? AND name = ?`,
		key.Product, key.Namespace, key.Name)
	if err != nil {
		return fmt.Errorf("delete claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ConnectionSecretExists(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}
