package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const DocStoreFile = "docstore.db"

// Chunk is a piece of a document together with its embedding.
type Chunk struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Ordinal int       `json:"ordinal"`
	Text    string    `json:"text"`
	Vector  []float32 `json:"-"`
}

// DocStore persists chunks and their vectors in SQLite.
type DocStore struct {
	db *sql.DB
}

func OpenDocStore(path string) (*DocStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open docstore %s", path)
	}
	if err := ensureDocStoreTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DocStore{db: db}, nil
}

func ensureDocStoreTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			text TEXT NOT NULL,
			vector BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path, ordinal)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "create docstore tables")
		}
	}
	return nil
}

func (s *DocStore) Close() error {
	return s.db.Close()
}

// InsertChunks writes all chunks in a single transaction.
func (s *DocStore) InsertChunks(ctx context.Context, chunks []Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin docstore transaction")
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO chunks (id, path, ordinal, text, vector) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "prepare chunk insert")
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Path, c.Ordinal, c.Text, encodeVector(c.Vector)); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "insert chunk %s", c.ID)
		}
	}
	return errors.Wrap(tx.Commit(), "commit chunks")
}

func (s *DocStore) Chunks(ctx context.Context) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, ordinal, text, vector FROM chunks ORDER BY path, ordinal`)
	if err != nil {
		return nil, errors.Wrap(err, "query chunks")
	}
	defer func() {
		_ = rows.Close()
	}()

	var ret []Chunk
	for rows.Next() {
		var c Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Path, &c.Ordinal, &c.Text, &blob); err != nil {
			return nil, errors.Wrap(err, "scan chunk")
		}
		c.Vector, err = decodeVector(blob)
		if err != nil {
			return nil, errors.Wrapf(err, "chunk %s", c.ID)
		}
		ret = append(ret, c)
	}
	return ret, rows.Err()
}

func (s *DocStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, errors.Wrap(err, "count chunks")
}

// vectors are stored as little-endian float32
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, errors.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
