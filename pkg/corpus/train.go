package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/vomarkov/pkg/markov"
	"github.com/CTAG07/vomarkov/pkg/text"
)

// tokenLink Is a struct used for batching token inserts.
type tokenLink struct {
	position int
	tokenID  int
}

// Append tokenizes data and appends the tokens to the end of the corpus. New
// tokens are added to the shared vocabulary. The entire operation runs in a
// single transaction, with an in-memory vocabulary cache and batched inserts
// to handle large inputs efficiently.
func (s *Store) Append(ctx context.Context, info Info, data io.Reader) error {
	// tokenBatchSize determines how many tokens are buffered before being written in a single batch.
	const tokenBatchSize = 1000

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// All transaction-specific statements will also be closed with this or the .Commit()
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var position int
	if err = tx.StmtContext(ctx, s.stmtNextPosition).QueryRowContext(ctx, info.Id).Scan(&position); err != nil {
		return fmt.Errorf("failed to find next position for corpus '%s': %w", info.Name, err)
	}

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	stmtInsertToken, err := tx.PrepareContext(ctx, `INSERT INTO corpus_tokens (corpus_id, position, token_id) VALUES (?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch token insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertToken)

	vocabCache := make(map[string]int)
	batch := make([]tokenLink, 0, tokenBatchSize)
	var tokenCount, sentenceCount int64

	commitBatch := func(batch *[]tokenLink) error {
		for _, link := range *batch {
			if _, err := stmtInsertToken.ExecContext(ctx, info.Id, link.position, link.tokenID); err != nil {
				return fmt.Errorf("failed during batch insert of token %d at position %d: %w", link.tokenID, link.position, err)
			}
		}
		*batch = (*batch)[:0]
		return nil
	}

	stream := s.tokenizer.NewStream(data)
	var token *text.Token

	for {
		token, err = stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("tokenizer error: %w", err)
		}

		tokenID, ok := vocabCache[token.Text]
		if !ok {
			if err = stmtInsertVocab.QueryRowContext(ctx, token.Text, token.EOC).Scan(&tokenID); err != nil {
				return fmt.Errorf("sql insert vocabulary error for token '%s': %w", token.Text, err)
			}
			vocabCache[token.Text] = tokenID
		}

		batch = append(batch, tokenLink{position: position, tokenID: tokenID})
		position++
		tokenCount++
		if token.EOC {
			sentenceCount++
		}

		if len(batch) >= tokenBatchSize {
			if err = commitBatch(&batch); err != nil {
				return err
			}
		}
	}

	if err = commitBatch(&batch); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Corpus training data appended",
		slog.String("corpus_name", info.Name),
		slog.Int("corpus_id", info.Id),
		slog.Int64("tokens_appended", tokenCount),
		slog.Int64("sentences_appended", sentenceCount),
	)

	return tx.Commit()
}

// Tokens returns every token of the corpus in order.
func (s *Store) Tokens(ctx context.Context, info Info) ([]text.Token, error) {
	rows, err := s.stmtGetTokens.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query tokens for corpus '%s': %w", info.Name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var tokens []text.Token
	for rows.Next() {
		var id int
		var token text.Token
		if err = rows.Scan(&id, &token.Text, &token.EOC); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Build loads the corpus and trains a fresh chain on it using the corpus's
// max order. The options are passed through to markov.New.
func (s *Store) Build(ctx context.Context, info Info, opts ...markov.Option) (*markov.Chain[text.Token], error) {
	tokens, err := s.Tokens(ctx, info)
	if err != nil {
		return nil, err
	}

	chain := markov.New(info.MaxOrder, tokens, opts...)
	stats := chain.Stats()

	s.logger.InfoContext(ctx, "Chain built from corpus",
		slog.String("corpus_name", info.Name),
		slog.Int("corpus_id", info.Id),
		slog.Int("max_order", info.MaxOrder),
		slog.Int("tokens", len(tokens)),
		slog.Int("keys", stats.Keys),
		slog.Int("transitions", stats.Transitions),
	)

	return chain, nil
}
