package main

import (
	"log/slog"
	"net/http"
)

const actionShutdown = "shutdown"

// ServerAPI holds the dependencies for the server control handlers.
type ServerAPI struct {
	actionChan chan string
	chains     *ChainCache
	logger     *slog.Logger
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// NewServerAPI creates a new instance of the ServerAPI.
func NewServerAPI(actionChan chan string, chains *ChainCache, logger *slog.Logger) *ServerAPI {
	return &ServerAPI{
		actionChan: actionChan,
		chains:     chains,
		logger:     logger,
	}
}

// RegisterRoutes sets up the routing for all /api/server endpoints.
func (a *ServerAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/server/version", a.handleVersion)
	mux.HandleFunc("GET /api/server/cache", a.handleCache)
	mux.HandleFunc("POST /api/server/shutdown", a.handleShutdown)
}

// handleHealthCheck is left unauthenticated for container health probes.
func (a *ServerAPI) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersion returns the application's build information.
func (a *ServerAPI) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeCorpusRead) {
		return
	}
	respondWithJSON(w, http.StatusOK, VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})
}

// handleCache reports how many chains are currently held in memory.
func (a *ServerAPI) handleCache(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeCorpusRead) {
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"cached_chains": a.chains.Len()})
}

// handleShutdown initiates a graceful shutdown of the server.
func (a *ServerAPI) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !requireScope(w, r, scopeServerControl) {
		return
	}

	a.logger.Warn("Shutdown initiated via API")
	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Server is shutting down..."})

	go func() {
		a.actionChan <- actionShutdown
	}()
}
