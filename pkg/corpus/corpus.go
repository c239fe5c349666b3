package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Info holds the metadata for a corpus: its unique ID, its name, and the
// maximum order of chains built from it.
type Info struct {
	Id       int    `json:"id"`
	Name     string `json:"name"`
	MaxOrder int    `json:"max_order"`
}

// ExportedCorpus is the serializable representation of a stored corpus,
// used for JSON-based import and export.
type ExportedCorpus struct {
	Name       string         `json:"name"`
	MaxOrder   int            `json:"max_order"`
	Vocabulary map[string]int `json:"vocabulary"` // token_text -> token_id
	EOC        []int          `json:"eoc"`        // token ids that end a chain
	Sequence   []int          `json:"sequence"`   // token ids in corpus order
}

// GetCorpusInfos retrieves metadata for all corpora currently in the database,
// returning them in a map keyed by corpus name.
func (s *Store) GetCorpusInfos(ctx context.Context) (map[string]Info, error) {
	rows, err := s.stmtGetCorpora.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	corpora := make(map[string]Info)
	for rows.Next() {
		var info Info
		if err = rows.Scan(&info.Id, &info.Name, &info.MaxOrder); err != nil {
			return nil, err
		}
		corpora[info.Name] = info
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return corpora, nil
}

// GetCorpusInfo retrieves the metadata for a single corpus specified by name.
// It returns sql.ErrNoRows if no such corpus exists.
func (s *Store) GetCorpusInfo(ctx context.Context, name string) (Info, error) {
	var id, maxOrder int
	err := s.stmtGetCorpusInfo.QueryRowContext(ctx, name).Scan(&id, &maxOrder)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Id:       id,
		Name:     name,
		MaxOrder: maxOrder,
	}, nil
}

// InsertCorpus creates a new, empty corpus entry in the database.
func (s *Store) InsertCorpus(ctx context.Context, info Info) error {
	if info.MaxOrder < 1 {
		return fmt.Errorf("corpus '%s' needs a positive max order, got %d", info.Name, info.MaxOrder)
	}
	_, err := s.stmtAddCorpus.ExecContext(ctx, info.Name, info.MaxOrder)
	return err
}

// RemoveCorpus deletes a corpus and all of its tokens from the database. The
// operation is performed within a transaction. Vocabulary entries are left in
// place; see PruneVocabulary.
func (s *Store) RemoveCorpus(ctx context.Context, info Info) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM corpus_tokens WHERE corpus_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove tokens for corpus %d: %w", info.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM corpus_corpora WHERE corpus_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove corpus %d: %w", info.Id, err)
	}

	s.logger.InfoContext(ctx, "Corpus removed successfully",
		slog.String("corpus_name", info.Name),
		slog.Int("corpus_id", info.Id),
	)

	return tx.Commit()
}

// TokenID looks up a token in the shared vocabulary and returns its ID.
// It returns sql.ErrNoRows if the token has never been stored.
func (s *Store) TokenID(ctx context.Context, token string) (int, error) {
	var id int
	if err := s.stmtGetTokenID.QueryRowContext(ctx, token).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// ExportCorpus serializes a corpus into JSON and writes it to w. This is
// useful for backups or for moving training data between databases.
func (s *Store) ExportCorpus(ctx context.Context, info Info, w io.Writer) error {
	rows, err := s.stmtGetTokens.QueryContext(ctx, info.Id)
	if err != nil {
		return fmt.Errorf("could not query tokens for export: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	exported := ExportedCorpus{
		Name:       info.Name,
		MaxOrder:   info.MaxOrder,
		Vocabulary: make(map[string]int),
		EOC:        []int{},
		Sequence:   []int{},
	}

	for rows.Next() {
		var id int
		var tokenText string
		var eoc bool
		if err = rows.Scan(&id, &tokenText, &eoc); err != nil {
			return err
		}
		if _, seen := exported.Vocabulary[tokenText]; !seen {
			exported.Vocabulary[tokenText] = id
			if eoc {
				exported.EOC = append(exported.EOC, id)
			}
		}
		exported.Sequence = append(exported.Sequence, id)
	}
	if err = rows.Err(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Corpus exported",
		slog.String("corpus_name", info.Name),
		slog.Int("corpus_id", info.Id),
		slog.Int("vocab_items_exported", len(exported.Vocabulary)),
		slog.Int("tokens_exported", len(exported.Sequence)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// ImportCorpus reads a JSON corpus from r and stores it. If a corpus with the
// same name already exists, the imported tokens are appended to it and its
// max order is kept. Otherwise the corpus is created. Token IDs are re-mapped
// onto this database's vocabulary, and the whole import is transactional.
func (s *Store) ImportCorpus(ctx context.Context, r io.Reader) error {
	var imported ExportedCorpus
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return fmt.Errorf("failed to decode json corpus: %w", err)
	}
	if imported.Name == "" {
		return errors.New("imported corpus has no name")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var corpusID, maxOrder int
	err = tx.QueryRowContext(ctx, "SELECT corpus_id, max_order FROM corpus_corpora WHERE corpus_name = ?", imported.Name).Scan(&corpusID, &maxOrder)
	if errors.Is(err, sql.ErrNoRows) {
		if imported.MaxOrder < 1 {
			return fmt.Errorf("imported corpus '%s' has invalid max order %d", imported.Name, imported.MaxOrder)
		}
		res, err := tx.ExecContext(ctx, "INSERT INTO corpus_corpora (corpus_name, max_order) VALUES (?, ?)", imported.Name, imported.MaxOrder)
		if err != nil {
			return fmt.Errorf("failed to insert new corpus '%s': %w", imported.Name, err)
		}
		newID, _ := res.LastInsertId()
		corpusID = int(newID)
		maxOrder = imported.MaxOrder
	} else if err != nil {
		return fmt.Errorf("failed to query for corpus '%s': %w", imported.Name, err)
	} else if maxOrder != imported.MaxOrder {
		s.logger.WarnContext(ctx, "Imported max order differs from existing corpus, keeping existing",
			slog.String("corpus_name", imported.Name),
			slog.Int("existing_max_order", maxOrder),
			slog.Int("imported_max_order", imported.MaxOrder),
		)
	}

	eocIDs := make(map[int]bool, len(imported.EOC))
	for _, id := range imported.EOC {
		eocIDs[id] = true
	}

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	vocabIDMap := make(map[int]int) // old_id -> new_id
	for tokenText, oldID := range imported.Vocabulary {
		var newID int
		if err := stmtInsertVocab.QueryRowContext(ctx, tokenText, eocIDs[oldID]).Scan(&newID); err != nil {
			return fmt.Errorf("failed to get/insert vocab '%s': %w", tokenText, err)
		}
		vocabIDMap[oldID] = newID
	}

	var position int
	if err := tx.StmtContext(ctx, s.stmtNextPosition).QueryRowContext(ctx, corpusID).Scan(&position); err != nil {
		return fmt.Errorf("failed to find next position for corpus '%s': %w", imported.Name, err)
	}

	stmtInsertToken, err := tx.PrepareContext(ctx, `INSERT INTO corpus_tokens (corpus_id, position, token_id) VALUES (?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare token insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertToken)

	for _, oldID := range imported.Sequence {
		newID, ok := vocabIDMap[oldID]
		if !ok {
			return fmt.Errorf("import consistency error: token id %d not found in vocab map", oldID)
		}
		if _, err = stmtInsertToken.ExecContext(ctx, corpusID, position, newID); err != nil {
			return fmt.Errorf("failed to insert token at position %d: %w", position, err)
		}
		position++
	}

	s.logger.InfoContext(ctx, "Corpus imported successfully",
		slog.String("corpus_name", imported.Name),
		slog.Int("target_corpus_id", corpusID),
		slog.Int("vocab_items_merged", len(imported.Vocabulary)),
		slog.Int("tokens_imported", len(imported.Sequence)),
	)

	return tx.Commit()
}
