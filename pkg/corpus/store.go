package corpus

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/vomarkov/pkg/text"
)

// SetupSchema initializes the necessary tables in the provided database. This
// function should be called once on a new database before any other operations
// are performed. It is idempotent and safe to call on an already-initialized
// database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaVocab = `
CREATE TABLE IF NOT EXISTS corpus_vocabulary (
    token_id INTEGER PRIMARY KEY,
    token_text TEXT NOT NULL UNIQUE,
    token_eoc INTEGER NOT NULL DEFAULT 0
);
`
		schemaCorpora = `
CREATE TABLE IF NOT EXISTS corpus_corpora (
    corpus_id INTEGER PRIMARY KEY,
    corpus_name TEXT NOT NULL UNIQUE,
    max_order INTEGER NOT NULL
);
`
		schemaTokens = `
CREATE TABLE IF NOT EXISTS corpus_tokens (
    corpus_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    token_id INTEGER NOT NULL,
    PRIMARY KEY (corpus_id, position)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	// Rollback is a no-op once Commit has succeeded.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaVocab); err != nil {
		return fmt.Errorf("could not create vocabulary schema: %w", err)
	}

	if _, err = tx.Exec(schemaCorpora); err != nil {
		return fmt.Errorf("could not create corpora schema: %w", err)
	}

	if _, err = tx.Exec(schemaTokens); err != nil {
		return fmt.Errorf("could not create tokens schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store is the entry point for reading and writing corpora. It holds the
// database connection, a tokenizer for incoming text, and prepared SQL
// statements for efficient database interaction.
type Store struct {
	db                *sql.DB
	tokenizer         text.Tokenizer
	stmtGetCorpusInfo *sql.Stmt
	stmtGetCorpora    *sql.Stmt
	stmtAddCorpus     *sql.Stmt
	stmtCorpusLen     *sql.Stmt
	stmtCorpusVocab   *sql.Stmt
	stmtCorpusEOC     *sql.Stmt
	stmtNextPosition  *sql.Stmt
	stmtGetTokens     *sql.Stmt
	stmtInsertVocab   *sql.Stmt
	stmtGetTokenID    *sql.Stmt
	stmtGetVocabLen   *sql.Stmt
	logger            *slog.Logger
}

// NewStore creates and returns a new Store. It pre-compiles all necessary SQL
// statements, returning an error if any preparation fails.
func NewStore(db *sql.DB, tokenizer text.Tokenizer) (*Store, error) {
	s := &Store{
		db:        db,
		tokenizer: tokenizer,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	statements := []struct {
		stmt  **sql.Stmt
		query string
	}{
		{&s.stmtGetCorpusInfo, `SELECT corpus_id, max_order FROM corpus_corpora WHERE corpus_name = ?;`},
		{&s.stmtGetCorpora, `SELECT corpus_id, corpus_name, max_order FROM corpus_corpora;`},
		{&s.stmtAddCorpus, `INSERT INTO corpus_corpora (corpus_name, max_order) VALUES (?, ?);`},
		{&s.stmtCorpusLen, `SELECT COUNT(*) FROM corpus_tokens WHERE corpus_id = ?;`},
		{&s.stmtCorpusVocab, `SELECT COUNT(DISTINCT token_id) FROM corpus_tokens WHERE corpus_id = ?;`},
		{&s.stmtCorpusEOC, `SELECT COUNT(*) FROM corpus_tokens t JOIN corpus_vocabulary v ON v.token_id = t.token_id WHERE t.corpus_id = ? AND v.token_eoc = 1;`},
		{&s.stmtNextPosition, `SELECT coalesce(MAX(position) + 1, 0) FROM corpus_tokens WHERE corpus_id = ?;`},
		{&s.stmtGetTokens, `SELECT t.token_id, v.token_text, v.token_eoc FROM corpus_tokens t JOIN corpus_vocabulary v ON v.token_id = t.token_id WHERE t.corpus_id = ? ORDER BY t.position;`},
		{&s.stmtInsertVocab, `INSERT INTO corpus_vocabulary (token_text, token_eoc) VALUES (?, ?) ON CONFLICT(token_text) DO UPDATE SET token_text=excluded.token_text RETURNING token_id;`},
		{&s.stmtGetTokenID, `SELECT token_id FROM corpus_vocabulary WHERE token_text = ?;`},
		{&s.stmtGetVocabLen, `SELECT COUNT(*) FROM corpus_vocabulary;`},
	}
	for _, st := range statements {
		stmt, err := db.Prepare(st.query)
		if err != nil {
			s.Close()
			return nil, err
		}
		*st.stmt = stmt
	}
	return s, nil
}

// Close releases all prepared SQL statements held by the Store. It does not
// close the underlying database.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetCorpusInfo, s.stmtGetCorpora, s.stmtAddCorpus,
		s.stmtCorpusLen, s.stmtCorpusVocab, s.stmtCorpusEOC,
		s.stmtNextPosition, s.stmtGetTokens, s.stmtInsertVocab,
		s.stmtGetTokenID, s.stmtGetVocabLen,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Tokenizer returns the tokenizer used for incoming text.
func (s *Store) Tokenizer() text.Tokenizer {
	return s.tokenizer
}
