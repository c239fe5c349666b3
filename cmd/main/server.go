package main

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/CTAG07/vomarkov/pkg/corpus"
	"github.com/CTAG07/vomarkov/pkg/markov"
)

// Server wires the API handlers to a corpus store.
type Server struct {
	config    *Config
	logger    *slog.Logger
	chains    *ChainCache
	authAPI   *AuthAPI
	corpusAPI *CorpusAPI
	serverAPI *ServerAPI
	apiMux    *http.ServeMux
}

// NewServer builds the API. Chains use a seeded source when the config sets
// rand_seed, and the global source otherwise.
func NewServer(config *Config, logger *slog.Logger, db *sql.DB, store *corpus.Store, actionChan chan string) *Server {
	var source markov.Source
	if config.RandSeed != 0 {
		source = markov.NewSeededSource(config.RandSeed)
	}
	chains := NewChainCache(store, source, logger)

	server := &Server{
		config:    config,
		logger:    logger,
		chains:    chains,
		authAPI:   NewAuthAPI(db, logger),
		corpusAPI: NewCorpusAPI(store, chains, config.DefaultMaxLength, logger),
		serverAPI: NewServerAPI(actionChan, chains, logger),
		apiMux:    http.NewServeMux(),
	}

	apiMux := http.NewServeMux()
	server.authAPI.RegisterRoutes(apiMux)
	server.corpusAPI.RegisterRoutes(apiMux)
	server.serverAPI.RegisterRoutes(apiMux)

	// Everything under /api/ passes through authentication first...
	server.apiMux.Handle("/api/", server.authAPI.Authenticate(apiMux))
	// ... except for the health check.
	server.apiMux.HandleFunc("/api/health", server.serverAPI.handleHealthCheck)

	return server
}

// Handler returns the root HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.apiMux
}
