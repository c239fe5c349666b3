package corpus

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/CTAG07/vomarkov/pkg/text"
)

// setupTestDB creates a new SQLite database in a temp dir and a Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *Store) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db, text.NewDefaultTokenizer())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// setupTestDBWithCorpus is a convenience helper that also stores a default corpus.
func setupTestDBWithCorpus(t *testing.T) (context.Context, *Store, Info) {
	_, s := setupTestDB(t)
	ctx := context.Background()
	info := Info{Name: "test_corpus", MaxOrder: 3}

	if err := s.InsertCorpus(ctx, info); err != nil {
		t.Fatalf("setup: InsertCorpus() failed: %v", err)
	}
	info, err := s.GetCorpusInfo(ctx, info.Name)
	if err != nil {
		t.Fatalf("setup: GetCorpusInfo() failed: %v", err)
	}
	trainingData := "one fish two fish. red fish blue fish."
	if err := s.Append(ctx, info, strings.NewReader(trainingData)); err != nil {
		t.Fatalf("setup: Append() failed: %v", err)
	}
	return ctx, s, info
}

// tokenTexts flattens tokens to their text for comparisons.
func tokenTexts(tokens []text.Token) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = tok.Text
	}
	return strings.Join(parts, " ")
}

// setupTestDBBench creates a database for benchmarking.
func setupTestDBBench(b *testing.B) (*sql.DB, *Store) {
	dbFile := filepath.Join(b.TempDir(), "bench.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=OFF&_cache_size=-16000")
	if err != nil {
		b.Fatalf("failed to open database: %v", err)
	}
	b.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		b.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db, text.NewDefaultTokenizer())
	if err != nil {
		b.Fatalf("NewStore() error = %v", err)
	}
	b.Cleanup(s.Close)

	return db, s
}
