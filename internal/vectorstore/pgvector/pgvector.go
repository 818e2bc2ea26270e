// Package pgvector keeps a chunk collection in a PostgreSQL table with a
// pgvector column. One table holds one collection.
package pgvector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"
	pgv "github.com/pgvector/pgvector-go"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

var _ vectorstore.Store = (*Storage)(nil)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Storage is a pgvector-backed collection.
type Storage struct {
	db    *sql.DB
	table string
	ident string
}

// NewStorage connects to dsn and binds the store to table. Dashes in the
// table name are mapped to underscores.
func NewStorage(ctx context.Context, dsn, table string) (*Storage, error) {
	table = strings.ReplaceAll(table, "-", "_")
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &Storage{db: db, table: table, ident: pq.QuoteIdentifier(table)}, nil
}

func (s *Storage) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, s.table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking table: %w", err)
	}
	return exists, nil
}

func (s *Storage) Create(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if len(vectors) == 0 {
		return domain.ErrEmptyInput
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range createStatements(s.ident, len(vectors[0])) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}
	insert := fmt.Sprintf(`INSERT INTO %s (position, body, embedding) VALUES ($1, $2, $3)`, s.ident)
	for i, c := range chunks {
		if _, err := tx.ExecContext(ctx, insert, c.Index, c.Text, pgv.NewVector(vectors[i])); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", c.Index, err)
		}
	}
	return tx.Commit()
}

func (s *Storage) Search(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	if len(vector) == 0 {
		return nil, errors.New("query vector cannot be empty")
	}
	if k <= 0 {
		k = vectorstore.DefaultTopK
	}
	rows, err := s.db.QueryContext(ctx, searchQuery(s.ident), pgv.NewVector(vector), k)
	if err != nil {
		if isDimensionError(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrDimensionMismatch, err)
		}
		return nil, fmt.Errorf("failed to execute search query: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		if err := rows.Scan(&r.Chunk.Index, &r.Chunk.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating through chunks: %w", err)
	}
	return results, nil
}

func (s *Storage) Drop(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.ident)); err != nil {
		return fmt.Errorf("dropping table: %w", err)
	}
	return nil
}

func (s *Storage) Close() error { return s.db.Close() }

func createStatements(ident string, dim int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE %s (
			id        BIGSERIAL PRIMARY KEY,
			position  INTEGER NOT NULL,
			body      TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, ident, dim),
	}
}

// searchQuery ranks by cosine distance; the score is cosine similarity.
func searchQuery(ident string) string {
	return fmt.Sprintf(`
		SELECT position, body, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, position
		LIMIT $2
	`, ident)
}

func isDimensionError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return strings.Contains(pqErr.Message, "different vector dimensions")
	}
	return strings.Contains(err.Error(), "different vector dimensions")
}
