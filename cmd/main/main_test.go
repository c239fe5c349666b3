package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CTAG07/vomarkov/pkg/corpus"
	"github.com/CTAG07/vomarkov/pkg/text"
)

const trainingData = "one fish two fish. red fish blue fish."

// writeTestConfig writes a config pointing at a fresh database in a temp dir
// and returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DatabasePath = filepath.Join(dir, "test.db")
	cfg.LogLevel = "error"

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("failed to marshal config: %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err = os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// runCommand executes the CLI with args and stdin, returning stdout.
func runCommand(t *testing.T, configPath, stdin string, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", configPath}, args...))

	err := root.Execute()
	a.close()
	return out.String(), err
}

// testServer is an API server backed by a temporary database.
type testServer struct {
	server     *Server
	store      *corpus.Store
	actionChan chan string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := initDB(filepath.Join(t.TempDir(), "api.db") + "?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = corpus.SetupSchema(db); err != nil {
		t.Fatalf("failed to set up corpus schema: %v", err)
	}
	if err = setupAuthSchema(db); err != nil {
		t.Fatalf("failed to set up auth schema: %v", err)
	}
	store, err := corpus.NewStore(db, text.NewDefaultTokenizer())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(store.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	actionChan := make(chan string, 1)
	return &testServer{
		server:     NewServer(DefaultConfig(), logger, db, store, actionChan),
		store:      store,
		actionChan: actionChan,
	}
}

// do sends a request through the full handler chain. key may be empty.
func (ts *testServer) do(t *testing.T, method, path, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(authHeader, key)
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

// setupFishCorpus creates and trains the "fish" corpus through the API.
func (ts *testServer) setupFishCorpus(t *testing.T) {
	t.Helper()
	if rec := ts.do(t, http.MethodPost, "/api/corpora", `{"name":"fish","max_order":3}`, ""); rec.Code != http.StatusCreated {
		t.Fatalf("create corpus: got status %d, body %s", rec.Code, rec.Body)
	}
	if rec := ts.do(t, http.MethodPost, "/api/corpora/fish/train", trainingData, ""); rec.Code != http.StatusAccepted {
		t.Fatalf("train corpus: got status %d, body %s", rec.Code, rec.Body)
	}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return v
}
