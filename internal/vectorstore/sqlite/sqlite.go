// Package sqlite persists a chunk collection as a SQLite database inside a
// collection directory. The collection exists when the directory does.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

// DBFile is the database file name inside the collection directory.
const DBFile = "collection.db"

var _ vectorstore.Store = (*Store)(nil)

// Store is a SQLite-backed collection rooted at a directory.
type Store struct {
	dir string

	mu sync.Mutex
	db *sql.DB
}

// NewStore returns a store for the collection at dir. Nothing is opened until used.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the collection directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) Exists(context.Context) (bool, error) {
	info, err := os.Stat(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat collection: %w", err)
	}
	return info.IsDir(), nil
}

// Create writes the collection. On any failure the directory is removed again,
// so a half-written collection never reports as existing.
func (s *Store) Create(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if len(vectors) == 0 {
		return domain.ErrEmptyInput
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating collection directory: %w", err)
	}
	if err := s.write(ctx, chunks, vectors); err != nil {
		if dropErr := s.Drop(context.Background()); dropErr != nil {
			return errors.Join(err, dropErr)
		}
		return err
	}
	return nil
}

func (s *Store) write(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	db, err := s.open(true)
	if err != nil {
		return err
	}
	if err := createSchema(ctx, db); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	meta := map[string]string{
		"dimension":  strconv.Itoa(len(vectors[0])),
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("writing meta: %w", err)
		}
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (id, position, text, vector) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()
	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), c.Index, c.Text, float32SliceToBytes(vectors[i])); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", c.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]domain.SearchResult, error) {
	db, err := s.open(false)
	if err != nil {
		return nil, err
	}

	var dimStr string
	if err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'dimension'`).Scan(&dimStr); err != nil {
		return nil, fmt.Errorf("reading dimension: %w", err)
	}
	if dim, _ := strconv.Atoi(dimStr); dim != len(vector) {
		return nil, fmt.Errorf("%w: query has %d, collection has %s", domain.ErrDimensionMismatch, len(vector), dimStr)
	}

	rows, err := db.QueryContext(ctx, `SELECT position, text, vector FROM chunks ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var (
		chunks  []domain.Chunk
		vectors [][]float32
	)
	for rows.Next() {
		var (
			c    domain.Chunk
			blob []byte
		)
		if err := rows.Scan(&c.Index, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
		vectors = append(vectors, bytesToFloat32Slice(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return vectorstore.Rank(vector, chunks, vectors, k)
}

// Drop closes the database and removes the collection directory.
func (s *Store) Drop(context.Context) error {
	if err := s.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("removing collection: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// open returns the shared handle. Unless create is set the database file must already exist.
func (s *Store) open(create bool) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	dbPath := filepath.Join(s.dir, DBFile)
	if !create {
		if _, err := os.Stat(dbPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, domain.ErrCollectionNotFound
			}
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chunks (
		id       TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		text     TEXT NOT NULL,
		vector   BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_position ON chunks(position)`,
}

func createSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// float32SliceToBytes converts a []float32 to a little-endian byte slice.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
