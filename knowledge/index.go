package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"

	_ "modernc.org/sqlite"
)

// Sentinel errors.
var (
	ErrIndexUnavailable = errors.New("knowledge index unavailable")
	ErrEmbedderMismatch = errors.New("index was built with a different embedder")
	ErrEmptyCorpus      = errors.New("knowledge corpus is empty")
)

const (
	embedBatchSize = 64
	queryCacheSize = 256
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	id        TEXT PRIMARY KEY,
	ordinal   INTEGER NOT NULL,
	text      TEXT NOT NULL,
	embedding BLOB NOT NULL
);`

// Chunk is one indexed passage of the corpus.
type Chunk struct {
	ID      string
	Ordinal int
	Text    string
}

type entry struct {
	chunk  Chunk
	vector []float32
}

// Index is a persisted set of embedded chunks queried by cosine
// similarity. Chunks are read from SQLite on first use and served from
// memory afterwards. Index is safe for concurrent use.
type Index struct {
	db       *sql.DB
	embedder Embedder

	mu      sync.Mutex
	loaded  bool
	entries []entry

	queries *lru.Cache[string, []float32]
}

// Build chunks corpus, embeds every chunk and writes the index to path,
// replacing any previous contents. ":memory:" builds an in-process index.
func Build(ctx context.Context, path, corpus string, splitter Splitter, embedder Embedder) (*Index, error) {
	texts := splitter.Split(corpus)
	if len(texts) == 0 {
		return nil, ErrEmptyCorpus
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	vectors, err := embedAll(ctx, embedder, texts)
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := write(ctx, db, embedder.Name(), texts, vectors); err != nil {
		db.Close()
		return nil, err
	}

	return newIndex(db, embedder)
}

// Open opens an index previously written by Build. The embedder must be
// the one the index was built with.
func Open(ctx context.Context, path string, embedder Embedder) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	var name string
	err = db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'embedder'`).Scan(&name)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: read metadata: %v", ErrIndexUnavailable, err)
	}
	if name != embedder.Name() {
		db.Close()
		return nil, fmt.Errorf("%w: index %s, embedder %s", ErrEmbedderMismatch, name, embedder.Name())
	}

	return newIndex(db, embedder)
}

func newIndex(db *sql.DB, embedder Embedder) (*Index, error) {
	cache, err := lru.New[string, []float32](queryCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Index{db: db, embedder: embedder, queries: cache}, nil
}

func openDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	// One connection keeps an in-memory database alive and serializes writes.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init schema: %v", ErrIndexUnavailable, err)
	}
	return db, nil
}

func embedAll(ctx context.Context, embedder Embedder, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		batch, err := embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func write(ctx context.Context, db *sql.DB, embedderName string, texts []string, vectors [][]float32) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM chunks`, `DELETE FROM meta`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
		}
	}

	meta := map[string]string{
		"embedder": embedderName,
		"chunks":   strconv.Itoa(len(texts)),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (id, ordinal, text, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	defer stmt.Close()

	for i, text := range texts {
		if _, err := stmt.ExecContext(ctx, ulid.Make().String(), i, text, encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("%w: insert chunk %d: %v", ErrIndexUnavailable, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	return nil
}

// load reads the chunks once. A failed read leaves the index unloaded so
// the next call tries again.
func (x *Index) load(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.loaded {
		return nil
	}

	entries, err := x.readChunks(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	x.entries = entries
	x.loaded = true
	return nil
}

func (x *Index) readChunks(ctx context.Context) ([]entry, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT id, ordinal, text, embedding FROM chunks ORDER BY ordinal`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []entry
	for rows.Next() {
		var (
			e    entry
			blob []byte
		)
		if err := rows.Scan(&e.chunk.ID, &e.chunk.Ordinal, &e.chunk.Text, &blob); err != nil {
			return nil, err
		}
		e.vector = decodeVector(blob)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Len returns the number of indexed chunks.
func (x *Index) Len(ctx context.Context) (int, error) {
	if err := x.load(ctx); err != nil {
		return 0, err
	}
	return len(x.entries), nil
}

// Query returns the texts of the k chunks most similar to text, most
// similar first. Ties keep corpus order.
func (x *Index) Query(ctx context.Context, text string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := x.load(ctx); err != nil {
		return nil, err
	}
	if len(x.entries) == 0 {
		return nil, nil
	}

	qv, err := x.queryVector(ctx, text)
	if err != nil {
		return nil, err
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(x.entries))
	for i, e := range x.entries {
		scores[i] = scored{idx: i, score: cosine(qv, e.vector)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	k = min(k, len(scores))
	out := make([]string, 0, k)
	for _, s := range scores[:k] {
		out = append(out, x.entries[s.idx].chunk.Text)
	}
	return out, nil
}

func (x *Index) queryVector(ctx context.Context, text string) ([]float32, error) {
	if v, ok := x.queries.Get(text); ok {
		return v, nil
	}
	vecs, err := x.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vecs))
	}
	x.queries.Add(text, vecs[0])
	return vecs[0], nil
}

// Close releases the database.
func (x *Index) Close() error {
	return x.db.Close()
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v
}
