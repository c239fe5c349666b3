package corpus

import (
	"context"
	"sort"
)

// DBStats holds aggregated statistics for the entire database, including a
// list of all corpora and their individual stats.
type DBStats struct {
	Corpora   []Info              // All corpora in the database, sorted by name
	Stats     map[int]CorpusStats // A mapping of corpus ids to their stats
	VocabSize int                 // The number of unique tokens across all corpora
}

// CorpusStats holds aggregated statistics for a single corpus.
type CorpusStats struct {
	Tokens         int `json:"tokens"`          // The length of the stored sequence.
	DistinctTokens int `json:"distinct_tokens"` // The number of unique tokens the corpus uses.
	Sentences      int `json:"sentences"`       // The number of End-Of-Chain tokens in the sequence.
}

// GetStats returns a snapshot of statistics for the entire database,
// including global counts and per-corpus stats.
func (s *Store) GetStats(ctx context.Context) (*DBStats, error) {
	infos, err := s.GetCorpusInfos(ctx)
	if err != nil {
		return nil, err
	}

	var vocabLen int
	if err = s.stmtGetVocabLen.QueryRowContext(ctx).Scan(&vocabLen); err != nil {
		return nil, err
	}

	corpora := make([]Info, 0, len(infos))
	corpusStats := make(map[int]CorpusStats, len(infos))
	for _, info := range infos {
		corpora = append(corpora, info)
		stats, err := s.GetCorpusStats(ctx, info)
		if err != nil {
			return nil, err
		}
		corpusStats[info.Id] = stats
	}
	sort.Slice(corpora, func(i, j int) bool {
		return corpora[i].Name < corpora[j].Name
	})

	return &DBStats{
		Corpora:   corpora,
		Stats:     corpusStats,
		VocabSize: vocabLen,
	}, nil
}

// GetCorpusStats returns the statistics of a single corpus.
func (s *Store) GetCorpusStats(ctx context.Context, info Info) (CorpusStats, error) {
	var stats CorpusStats
	if err := s.stmtCorpusLen.QueryRowContext(ctx, info.Id).Scan(&stats.Tokens); err != nil {
		return CorpusStats{}, err
	}
	if err := s.stmtCorpusVocab.QueryRowContext(ctx, info.Id).Scan(&stats.DistinctTokens); err != nil {
		return CorpusStats{}, err
	}
	if err := s.stmtCorpusEOC.QueryRowContext(ctx, info.Id).Scan(&stats.Sentences); err != nil {
		return CorpusStats{}, err
	}
	return stats, nil
}
