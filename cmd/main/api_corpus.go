package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/CTAG07/vomarkov/pkg/corpus"
	"github.com/CTAG07/vomarkov/pkg/markov"
	"github.com/CTAG07/vomarkov/pkg/text"
)

// CorpusAPI holds the dependencies for the corpus and generation handlers.
type CorpusAPI struct {
	store            *corpus.Store
	chains           *ChainCache
	defaultMaxLength int
	logger           *slog.Logger
}

// NewCorpusAPI creates a new instance of the CorpusAPI.
func NewCorpusAPI(store *corpus.Store, chains *ChainCache, defaultMaxLength int, logger *slog.Logger) *CorpusAPI {
	return &CorpusAPI{
		store:            store,
		chains:           chains,
		defaultMaxLength: defaultMaxLength,
		logger:           logger,
	}
}

// RegisterRoutes sets up the routing for all /api/corpora endpoints.
func (c *CorpusAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/corpora", c.handleList)
	mux.HandleFunc("POST /api/corpora", c.handleCreate)
	mux.HandleFunc("POST /api/corpora/import", c.handleImport)
	mux.HandleFunc("DELETE /api/corpora/{name}", c.handleDelete)
	mux.HandleFunc("POST /api/corpora/{name}/train", c.handleTrain)
	mux.HandleFunc("GET /api/corpora/{name}/export", c.handleExport)
	mux.HandleFunc("POST /api/corpora/{name}/generate", c.handleGenerate)
	mux.HandleFunc("POST /api/corpora/{name}/predict", c.handlePredict)
	mux.HandleFunc("POST /api/corpora/{name}/reload", c.handleReload)
	mux.HandleFunc("POST /api/vocabulary/prune", c.handleVocabPrune)
}

// CreateCorpusRequest names a new corpus and the longest window its chains use.
type CreateCorpusRequest struct {
	Name     string `json:"name"`
	MaxOrder int    `json:"max_order"`
}

// CorpusSummary is a corpus together with its stored-sequence statistics.
type CorpusSummary struct {
	corpus.Info
	corpus.CorpusStats
}

// GenerateRequest starts a run from Seed. A zero MaxLength uses the server
// default, and a nil Order uses the corpus max order.
type GenerateRequest struct {
	Seed      string `json:"seed"`
	MaxLength int    `json:"max_length"`
	Order     *int   `json:"order"`
}

// GenerateResponse holds the joined text of a run, seed included.
type GenerateResponse struct {
	Text string `json:"text"`
}

// PredictRequest asks for a single next state. Each history entry is
// tokenized, so "fish." contributes two states.
type PredictRequest struct {
	History []string `json:"history"`
	Order   *int     `json:"order"`
}

// PredictResponse is the predicted state. OK is false when the chain had no
// successor for any suffix of the history.
type PredictResponse struct {
	State string `json:"state"`
	EOC   bool   `json:"eoc"`
	OK    bool   `json:"ok"`
}

// corpusFromPath resolves the {name} path value, writing the error response
// itself when the corpus can't be loaded.
func (c *CorpusAPI) corpusFromPath(w http.ResponseWriter, r *http.Request) (corpus.Info, bool) {
	name := r.PathValue("name")
	info, err := c.store.GetCorpusInfo(r.Context(), name)
	if err != nil {
		c.respondWithLookupError(w, name, err)
		return corpus.Info{}, false
	}
	return info, true
}

func (c *CorpusAPI) respondWithLookupError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		respondWithError(w, http.StatusNotFound, "Corpus not found")
		return
	}
	c.logger.Error("Failed to load corpus", "name", name, "error", err)
	respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
}

func (c *CorpusAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeCorpusRead) {
		return
	}
	stats, err := c.store.GetStats(r.Context())
	if err != nil {
		c.logger.Error("Failed to get corpus stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve corpora: %v", err))
		return
	}
	summaries := make([]CorpusSummary, 0, len(stats.Corpora))
	for _, info := range stats.Corpora {
		summaries = append(summaries, CorpusSummary{Info: info, CorpusStats: stats.Stats[info.Id]})
	}
	respondWithJSON(w, http.StatusOK, summaries)
}

func (c *CorpusAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeCorpusWrite) {
		return
	}
	var req CreateCorpusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}
	if req.Name == "" || req.MaxOrder <= 0 {
		respondWithError(w, http.StatusBadRequest, "Corpus name and a positive max_order are required")
		return
	}
	if strings.Contains(req.Name, "/") {
		respondWithError(w, http.StatusBadRequest, "Corpus name may not contain '/'")
		return
	}

	if err := c.store.InsertCorpus(r.Context(), corpus.Info{Name: req.Name, MaxOrder: req.MaxOrder}); err != nil {
		c.logger.Error("Failed to insert new corpus", "name", req.Name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create corpus: %v", err))
		return
	}
	info, err := c.store.GetCorpusInfo(r.Context(), req.Name)
	if err != nil {
		c.logger.Error("Failed to retrieve newly created corpus", "name", req.Name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to verify corpus creation: %v", err))
		return
	}
	respondWithJSON(w, http.StatusCreated, info)
}

func (c *CorpusAPI) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeCorpusWrite) {
		return
	}
	info, ok := c.corpusFromPath(w, r)
	if !ok {
		return
	}
	if err := c.store.RemoveCorpus(r.Context(), info); err != nil {
		c.logger.Error("Failed to remove corpus", "name", info.Name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to remove corpus: %v", err))
		return
	}
	c.chains.Invalidate(info.Name)
	w.WriteHeader(http.StatusNoContent)
}

// handleTrain appends the raw request body to the corpus.
func (c *CorpusAPI) handleTrain(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeCorpusWrite) {
		return
	}
	info, ok := c.corpusFromPath(w, r)
	if !ok {
		return
	}
	if err := c.store.Append(r.Context(), info, r.Body); err != nil {
		c.logger.Error("Failed to train corpus", "name", info.Name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Training failed: %v", err))
		return
	}
	c.chains.Invalidate(info.Name)
	w.WriteHeader(http.StatusAccepted)
}

func (c *CorpusAPI) handleExport(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeCorpusRead) {
		return
	}
	info, ok := c.corpusFromPath(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.json\"", info.Name))
	if err := c.store.ExportCorpus(r.Context(), info, w); err != nil {
		c.logger.Error("Failed to export corpus", "name", info.Name, "error", err)
	}
}

func (c *CorpusAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeCorpusWrite) {
		return
	}
	if err := c.store.ImportCorpus(r.Context(), r.Body); err != nil {
		c.logger.Error("Failed to import corpus", "error", err)
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Import failed: %v", err))
		return
	}
	// The imported name may match a cached corpus.
	c.chains.Reset()
	w.WriteHeader(http.StatusAccepted)
}

func (c *CorpusAPI) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeCorpusRead) {
		return
	}
	name := r.PathValue("name")
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	chain, err := c.chains.Get(r.Context(), name)
	if err != nil {
		c.respondWithLookupError(w, name, err)
		return
	}

	maxLength := req.MaxLength
	if maxLength <= 0 {
		maxLength = c.defaultMaxLength
	}
	opts := []text.GenerateOption{text.WithMaxLength(maxLength)}
	if req.Order != nil {
		opts = append(opts, text.WithOrder(*req.Order))
	}

	writer := text.NewWriter(chain, c.store.Tokenizer())
	writer.SetLogger(c.logger)
	output, err := writer.GenerateFromString(r.Context(), req.Seed, opts...)
	if err != nil {
		c.logger.Error("Failed to generate text", "name", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Generation failed: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, GenerateResponse{Text: output})
}

func (c *CorpusAPI) handlePredict(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeCorpusRead) {
		return
	}
	name := r.PathValue("name")
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	chain, err := c.chains.Get(r.Context(), name)
	if err != nil {
		c.respondWithLookupError(w, name, err)
		return
	}

	history, err := text.Tokenize(c.store.Tokenizer(), strings.NewReader(strings.Join(req.History, " ")))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid history: %v", err))
		return
	}

	var next text.Token
	var ok bool
	if req.Order != nil {
		next, ok = chain.GenerateWithOrder(*req.Order, history)
	} else {
		next, ok = chain.Generate(history)
	}
	respondWithJSON(w, http.StatusOK, PredictResponse{State: next.Text, EOC: next.EOC, OK: ok})
}

func (c *CorpusAPI) handleReload(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeCorpusWrite) {
		return
	}
	info, ok := c.corpusFromPath(w, r)
	if !ok {
		return
	}
	c.chains.Invalidate(info.Name)
	chain, err := c.chains.Get(r.Context(), info.Name)
	if err != nil {
		c.respondWithLookupError(w, info.Name, err)
		return
	}
	respondWithJSON(w, http.StatusOK, chainStatsResponse(info, chain.Stats()))
}

func (c *CorpusAPI) handleVocabPrune(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeCorpusWrite) {
		return
	}
	removed, err := c.store.PruneVocabulary(r.Context())
	if err != nil {
		c.logger.Error("Failed to prune vocabulary", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Vocabulary prune failed: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

// ChainStatsResponse describes a freshly built chain.
type ChainStatsResponse struct {
	Name        string `json:"name"`
	MaxOrder    int    `json:"max_order"`
	Keys        int    `json:"keys"`
	Transitions int    `json:"transitions"`
	States      int    `json:"states"`
	KeysByOrder []int  `json:"keys_by_order"`
}

func chainStatsResponse(info corpus.Info, stats markov.Stats) ChainStatsResponse {
	return ChainStatsResponse{
		Name:        info.Name,
		MaxOrder:    stats.MaxOrder,
		Keys:        stats.Keys,
		Transitions: stats.Transitions,
		States:      stats.States,
		KeysByOrder: stats.KeysByOrder,
	}
}
