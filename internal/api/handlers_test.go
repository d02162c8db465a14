package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"lvdt_go/internal/laser"
	"lvdt_go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLaser struct {
	status   models.LaserStatus
	info     models.ProgramInfo
	summary  *models.DatasetSummary
	programs int
	pending  int
	files    []models.FileEntry
	filesErr error
	lastTag  string
	lastDay  time.Time
}

func (f *fakeLaser) GetStatus() models.LaserStatus { return f.status }
func (f *fakeLaser) GetProgramInfo() models.ProgramInfo { return f.info }
func (f *fakeLaser) GetLastSummary() *models.DatasetSummary { return f.summary }
func (f *fakeLaser) PendingProgram() int { return f.pending }

func (f *fakeLaser) SelectProgram(index int) error {
	if index < 0 || index >= f.programs {
		return &laser.ConfigurationError{Reason: laser.ReasonProgramOutOfRange, Requested: index, Max: f.programs - 1}
	}
	f.info.Index = index
	return nil
}

func (f *fakeLaser) ListFiles(tag string, day time.Time) ([]models.FileEntry, error) {
	f.lastTag = tag
	f.lastDay = day
	return f.files, f.filesErr
}

type fakeStore struct {
	connected bool
	current   *models.DatasetSummary
	history   []models.DatasetSummary
	lastLimit int
}

func (f *fakeStore) IsConnected() bool { return f.connected }

func (f *fakeStore) GetCurrentSummary() (*models.DatasetSummary, error) {
	if f.current == nil {
		return nil, errors.New("vazio")
	}
	return f.current, nil
}

func (f *fakeStore) GetSummaryHistory(limit int) ([]models.DatasetSummary, error) {
	f.lastLimit = limit
	return f.history, nil
}

func newTestRouter(l *fakeLaser, s SummaryStore) *Router {
	return NewRouter(NewHandler(l, s), "api")
}

func serve(t *testing.T, r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGetStatus(t *testing.T) {
	l := &fakeLaser{status: models.LaserStatus{
		Status:    "ok",
		Timestamp: time.Unix(1700000000, 0),
		Program:   2,
		Cycles:    7,
	}}
	rec := serve(t, newTestRouter(l, nil), http.MethodGet, "/api/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["program"])
	assert.EqualValues(t, 7, body["cycles"])
	assert.EqualValues(t, 1700000000000, body["timestamp"])
	assert.NotContains(t, body, "lastError")
}

func TestStatusRejectsPost(t *testing.T) {
	rec := serve(t, newTestRouter(&fakeLaser{}, nil), http.MethodPost, "/api/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSelectProgram(t *testing.T) {
	l := &fakeLaser{programs: 3, pending: -1}
	r := newTestRouter(l, nil)

	rec := serve(t, r, http.MethodPost, "/api/program", `{"index": 2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, l.info.Index)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["pending"])

	rec = serve(t, r, http.MethodGet, "/api/program", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info models.ProgramInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, 2, info.Index)
}

func TestSelectProgramOutOfRange(t *testing.T) {
	l := &fakeLaser{programs: 1, pending: -1}
	rec := serve(t, newTestRouter(l, nil), http.MethodPost, "/api/program", `{"index": 5}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestSelectProgramMalformedBody(t *testing.T) {
	r := newTestRouter(&fakeLaser{programs: 1}, nil)

	assert.Equal(t, http.StatusBadRequest, serve(t, r, http.MethodPost, "/api/program", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, r, http.MethodPost, "/api/program", `nope`).Code)
}

func TestGetCurrent(t *testing.T) {
	t.Run("no data", func(t *testing.T) {
		rec := serve(t, newTestRouter(&fakeLaser{}, nil), http.MethodGet, "/api/current", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("local summary", func(t *testing.T) {
		l := &fakeLaser{summary: &models.DatasetSummary{Key: "laser", Count: 10, Mean: 1.5}}
		rec := serve(t, newTestRouter(l, nil), http.MethodGet, "/api/current", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got models.DatasetSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, 10, got.Count)
		assert.Equal(t, 1.5, got.Mean)
	})

	t.Run("redis fallback", func(t *testing.T) {
		store := &fakeStore{connected: true, current: &models.DatasetSummary{Count: 3}}
		rec := serve(t, newTestRouter(&fakeLaser{}, store), http.MethodGet, "/api/current", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"count":3`)
	})
}

func TestGetHistory(t *testing.T) {
	store := &fakeStore{connected: true, history: []models.DatasetSummary{{Count: 1}, {Count: 2}}}
	r := newTestRouter(&fakeLaser{}, store)

	rec := serve(t, r, http.MethodGet, "/api/history?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, store.lastLimit)

	var got []models.DatasetSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	assert.Equal(t, http.StatusBadRequest, serve(t, r, http.MethodGet, "/api/history?limit=-1", "").Code)
}

func TestGetHistoryWithoutRedis(t *testing.T) {
	rec := serve(t, newTestRouter(&fakeLaser{}, nil), http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetFiles(t *testing.T) {
	l := &fakeLaser{files: []models.FileEntry{{Name: "20240315_data", Keys: []string{"laser"}}}}
	r := newTestRouter(l, nil)

	rec := serve(t, r, http.MethodGet, "/api/files?tag=experiment&date=2024-03-15", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "experiment", l.lastTag)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), l.lastDay)
	assert.Contains(t, rec.Body.String(), "20240315_data")

	assert.Equal(t, http.StatusBadRequest, serve(t, r, http.MethodGet, "/api/files?date=15/03/2024", "").Code)
}

func TestGetFilesMissingPartition(t *testing.T) {
	l := &fakeLaser{filesErr: os.ErrNotExist}
	rec := serve(t, newTestRouter(l, nil), http.MethodGet, "/api/files?date=20240315", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCorsPreflight(t *testing.T) {
	h := Chain(CorsMiddleware)(newTestRouter(&fakeLaser{}, nil))
	rec := serve(t, h, http.MethodOptions, "/api/status", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := serve(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggingMiddlewareKeepsHijacker(t *testing.T) {
	var hijackable bool
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hijackable = w.(http.Hijacker)
		w.WriteHeader(http.StatusNoContent)
	}))

	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.True(t, hijackable)
}
