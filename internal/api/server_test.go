// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ccan-dev/ccan/internal/analysis"
	"github.com/ccan-dev/ccan/internal/cochange"
	"github.com/ccan-dev/ccan/internal/config"
	"github.com/ccan-dev/ccan/internal/persistence/sqlite"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memStore struct {
	mu   sync.Mutex
	runs map[string]sqlite.Run
	ids  []string
}

func newMemStore() *memStore {
	return &memStore{runs: make(map[string]sqlite.Run)}
}

func (s *memStore) Insert(_ context.Context, r sqlite.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = r
	s.ids = append(s.ids, r.ID)
	return nil
}

func (s *memStore) Finish(_ context.Context, r sqlite.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.runs[r.ID]
	if !ok {
		return sqlite.ErrNotFound
	}
	existing.Status = r.Status
	existing.FinishedAt = r.FinishedAt
	existing.DurationMS = r.DurationMS
	existing.Files = r.Files
	existing.Commits = r.Commits
	existing.Error = r.Error
	s.runs[r.ID] = existing
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (sqlite.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return sqlite.Run{}, sqlite.ErrNotFound
	}
	return r, nil
}

func (s *memStore) List(_ context.Context, limit int) ([]sqlite.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sqlite.Run
	for i := len(s.ids) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.runs[s.ids[i]])
	}
	return out, nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Repository:   t.TempDir(),
		Branch:       "main",
		OutputDir:    t.TempDir(),
		ChangesMin:   5,
		FreqMin:      5,
		Binning:      "none",
		IncludeRegex: ".*",
		ExcludeRegex: config.DefaultExcludeRegex,
		Algorithm:    "naive",
		CacheTTL:     time.Hour,
		Listen:       ":0",
		RateLimitRPM: 100,
	}
}

func completedRun(id string) (*analysis.Analysis, *analysis.Result) {
	started := time.Date(2023, 6, 15, 10, 0, 0, 0, time.UTC)
	a := &analysis.Analysis{
		ID:         id,
		Status:     analysis.StatusCompleted,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Duration:   time.Second,
		Files:      3,
		Commits:    7,
	}
	res := &analysis.Result{
		Ripples: &cochange.RippleProbabilities{
			ChangingFiles: []string{"a.go"},
			Ripples:       []cochange.Ripple{{File: "b.go", Prob: 0.5}},
		},
	}
	return a, res
}

func newTestServer(t *testing.T, store RunStore, runner Runner) *Server {
	t.Helper()
	s := New(testConfig(t), store, runner, analysis.Deps{})
	t.Cleanup(s.Close)
	return s
}

func doRequest(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, newMemStore(), nil)

	rec := doRequest(s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateAnalysis(t *testing.T) {
	store := newMemStore()
	runner := func(context.Context, analysis.Options) (*analysis.Analysis, *analysis.Result, error) {
		a, res := completedRun("run-1")
		return a, res, nil
	}
	s := newTestServer(t, store, runner)

	rec := doRequest(s, http.MethodPost, "/api/v1/analyses", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var a analysis.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "run-1", a.ID)
	assert.Equal(t, analysis.StatusCompleted, a.Status)

	stored, err := store.Get(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", stored.Status)
	assert.Equal(t, 3, stored.Files)
}

func TestCreateAnalysisInvalidBody(t *testing.T) {
	s := newTestServer(t, newMemStore(), nil)

	rec := doRequest(s, http.MethodPost, "/api/v1/analyses", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAnalysisInvalidOverride(t *testing.T) {
	s := newTestServer(t, newMemStore(), nil)

	body := []byte(`{"repository": "/does/not/exist"}`)
	rec := doRequest(s, http.MethodPost, "/api/v1/analyses", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAnalysisFailedRun(t *testing.T) {
	runner := func(context.Context, analysis.Options) (*analysis.Analysis, *analysis.Result, error) {
		a := &analysis.Analysis{ID: "run-f", Status: analysis.StatusFailed, Error: "boom"}
		return a, nil, assert.AnError
	}
	s := newTestServer(t, newMemStore(), runner)

	rec := doRequest(s, http.MethodPost, "/api/v1/analyses", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed")
}

func TestCreateAnalysisSingleFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	runner := func(context.Context, analysis.Options) (*analysis.Analysis, *analysis.Result, error) {
		close(started)
		<-release
		a, res := completedRun("run-slow")
		return a, res, nil
	}
	s := newTestServer(t, newMemStore(), runner)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec := doRequest(s, http.MethodPost, "/api/v1/analyses", nil)
		assert.Equal(t, http.StatusCreated, rec.Code)
	}()

	<-started
	rec := doRequest(s, http.MethodPost, "/api/v1/analyses", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	wg.Wait()
}

func TestGetAnalysis(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Insert(context.Background(), sqlite.Run{ID: "r1", Status: "completed"}))
	s := newTestServer(t, store, nil)

	rec := doRequest(s, http.MethodGet, "/api/v1/analyses/r1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/v1/analyses/absent", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAnalyses(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Insert(context.Background(), sqlite.Run{ID: "r1"}))
	require.NoError(t, store.Insert(context.Background(), sqlite.Run{ID: "r2"}))
	s := newTestServer(t, store, nil)

	rec := doRequest(s, http.MethodGet, "/api/v1/analyses", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []sqlite.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)
}

func TestGetRipples(t *testing.T) {
	runner := func(context.Context, analysis.Options) (*analysis.Analysis, *analysis.Result, error) {
		a, res := completedRun("run-r")
		return a, res, nil
	}
	s := newTestServer(t, newMemStore(), runner)

	rec := doRequest(s, http.MethodPost, "/api/v1/analyses", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/v1/analyses/run-r/ripples", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var ripples cochange.RippleProbabilities
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ripples))
	assert.Equal(t, []string{"a.go"}, ripples.ChangingFiles)

	rec = doRequest(s, http.MethodGet, "/api/v1/analyses/absent/ripples", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
