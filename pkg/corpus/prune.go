package corpus

import (
	"context"
	"fmt"
	"log/slog"
)

// PruneVocabulary removes vocabulary entries that no corpus references any
// more, typically after RemoveCorpus. It returns the number of entries removed.
func (s *Store) PruneVocabulary(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM corpus_vocabulary WHERE token_id NOT IN (SELECT DISTINCT token_id FROM corpus_tokens)`)
	if err != nil {
		return 0, fmt.Errorf("could not prune vocabulary: %w", err)
	}
	removed, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Vocabulary pruned",
		slog.Int64("tokens_removed", removed),
	)
	return removed, nil
}
