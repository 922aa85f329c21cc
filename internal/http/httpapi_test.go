package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/analytics"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/cache"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/chat"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/events"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/export"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/repository"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/store"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/vectorsearch"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var errDown = errors.New("connection refused")

// downSource fails every category.
type downSource struct{}

func (downSource) ListPatients(context.Context) ([]domain.Patient, error) { return nil, errDown }
func (downSource) ListReadings(context.Context, domain.Instrument) ([]domain.InstrumentReading, error) {
	return nil, errDown
}
func (downSource) ListSubstanceHistory(context.Context) ([]domain.SubstanceHistory, error) {
	return nil, errDown
}
func (downSource) ListPHPAssessments(context.Context) ([]domain.PHPAssessment, error) {
	return nil, errDown
}
func (downSource) ListBPSAssessments(context.Context) ([]domain.BPSAssessment, error) {
	return nil, errDown
}
func (downSource) Ping(context.Context) error { return errDown }
func (downSource) Name() string               { return "down" }

type testEnv struct {
	router *Router
	cache  *cache.Cache
	redis  *redis.Client
}

func newTestEnv(t *testing.T, source repository.DataSource) *testEnv {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	logger := zap.NewNop()
	kv := store.NewRedisKV(rc)
	stream := events.NewRedisStream(rc, "dashboard:events", 100)
	c := cache.New(source,
		cache.WithLogger(logger),
		cache.WithPublishHook("mirror", cache.MirrorToKV(kv, "dashboard:snapshot:full", time.Minute)),
		cache.WithPublishHook("events", events.Hook(stream, logger)),
	)
	searcher := vectorsearch.NewFallbackSearcher(nil, vectorsearch.NewDemoSearcher(), logger)

	r := NewRouter(logger, 5*time.Second)
	r.RegisterHealthRoutes(NewHealthHandler(HealthDeps{
		Database:     source,
		DatabaseName: source.Name(),
		Redis:        kv,
		Cache:        c,
	}, logger))
	r.RegisterDashboardRoutes(NewDashboardHandler(c, logger))
	r.RegisterCacheRoutes(NewCacheHandler(c, stream, kv, "dashboard:snapshot:full", logger))
	r.RegisterChatRoutes(NewChatHandler(chat.NewService(c, nil, searcher, logger), logger))
	r.RegisterSearchRoutes(NewSearchHandler(searcher, 3, logger))
	r.RegisterExportRoutes(NewExportHandler(c, logger))
	return &testEnv{router: r, cache: c, redis: rc}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) Result[T] {
	t.Helper()
	var out Result[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, repository.NewDemoSource())
	rec := env.do(t, http.MethodGet, "/api/v1/dashboard/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))

	res := decode[StatsResponse](t, rec)
	assert.Equal(t, ResultSuccess, res.Code)
	assert.Equal(t, "success", res.Type)
	assert.Equal(t, 12, res.Result.Stats.TotalPatients)
	assert.Equal(t, "demo", res.Result.Source)
}

func TestDashboard_UnavailableWhenEveryCategoryFails(t *testing.T) {
	env := newTestEnv(t, downSource{})
	rec := env.do(t, http.MethodGet, "/api/v1/dashboard/stats", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, ResultError, decode[any](t, rec).Code)
}

func TestPatients_FilterAndPaginate(t *testing.T) {
	env := newTestEnv(t, repository.NewDemoSource())
	snap, err := env.cache.Get(context.Background())
	require.NoError(t, err)
	php := 0
	for _, p := range snap.Patients {
		if p.Program == domain.ProgramPHP {
			php++
		}
	}
	require.Greater(t, php, 2)

	rec := env.do(t, http.MethodGet, "/api/v1/dashboard/patients?program=php&size=2&page=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[analytics.Page[PatientSummary]](t, rec)
	assert.Len(t, res.Result.Items, 2)
	assert.Equal(t, php, res.Result.Pagination.Count)
	for _, p := range res.Result.Items {
		assert.Equal(t, domain.ProgramPHP, p.Program)
		assert.Positive(t, p.Assessments)
		assert.NotNil(t, p.LastAssessment)
		assert.NotEmpty(t, p.RiskLevel)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/dashboard/patients?status=discharged", nil)
	res = decode[analytics.Page[PatientSummary]](t, rec)
	for _, p := range res.Result.Items {
		assert.True(t, p.Discharged)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/dashboard/patients?status=asleep", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimelineAndRadar(t *testing.T) {
	env := newTestEnv(t, repository.NewDemoSource())

	rec := env.do(t, http.MethodGet, "/api/v1/dashboard/patients/PHP-1001/timeline", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	timeline := decode[[]domain.AssessmentScore](t, rec).Result
	require.NotEmpty(t, timeline)
	for i := 1; i < len(timeline); i++ {
		assert.False(t, timeline[i].Date.Before(timeline[i-1].Date))
	}

	rec = env.do(t, http.MethodGet, "/api/v1/dashboard/patients/NOPE/timeline", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/dashboard/radar/PHP-1001", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/v1/dashboard/radar/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssessments_Filter(t *testing.T) {
	env := newTestEnv(t, repository.NewDemoSource())

	rec := env.do(t, http.MethodGet, "/api/v1/dashboard/assessments?patient_id=BPS-2001&from=2024-01-01&to=2024-02-28", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[analytics.Page[domain.AssessmentScore]](t, rec).Result
	require.NotEmpty(t, page.Items)
	for _, s := range page.Items {
		assert.Equal(t, "BPS-2001", s.PatientID)
		assert.True(t, s.Date.Before(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	}

	rec = env.do(t, http.MethodGet, "/api/v1/dashboard/assessments?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/v1/dashboard/trends?from=2024-03-01&to=2024-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDerivedViews(t *testing.T) {
	env := newTestEnv(t, repository.NewDemoSource())
	for _, path := range []string{
		"/api/v1/dashboard/trends",
		"/api/v1/dashboard/risk",
		"/api/v1/dashboard/risk?level=critical",
		"/api/v1/dashboard/severity",
		"/api/v1/dashboard/behavioral",
		"/api/v1/dashboard/substances",
		"/api/v1/dashboard/motivation",
	} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, ResultSuccess, decode[any](t, rec).Code, path)
	}
}

func TestCacheLifecycle(t *testing.T) {
	env := newTestEnv(t, repository.NewDemoSource())

	st := decode[cache.Status](t, env.do(t, http.MethodGet, "/api/v1/cache/status", nil)).Result
	assert.False(t, st.Loaded)

	rec := env.do(t, http.MethodPost, "/api/v1/cache/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st = decode[cache.Status](t, rec).Result
	assert.True(t, st.Loaded)
	assert.True(t, st.Fresh)
	assert.Equal(t, 12, st.Counts["patients"])

	evs := decode[[]events.SnapshotEvent](t, env.do(t, http.MethodGet, "/api/v1/cache/events", nil)).Result
	require.Len(t, evs, 1)
	assert.Equal(t, 12, evs[0].TotalPatients)

	mirrored := decode[events.SnapshotEvent](t, env.do(t, http.MethodGet, "/api/v1/cache/mirror", nil)).Result
	assert.Equal(t, "demo", mirrored.Source)

	rec = env.do(t, http.MethodDelete, "/api/v1/cache", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[cache.Status](t, rec).Result.Loaded)

	rec = env.do(t, http.MethodPut, "/api/v1/cache", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCacheRefresh_FailureKeepsStatus(t *testing.T) {
	env := newTestEnv(t, downSource{})
	rec := env.do(t, http.MethodPost, "/api/v1/cache/refresh", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	res := decode[cache.Status](t, rec)
	assert.Equal(t, ResultError, res.Code)
	assert.EqualValues(t, 1, res.Result.FailedRefreshes)
}

func chatBody(text string) chat.Request {
	return chat.Request{Messages: []chat.Message{{Role: chat.RoleUser, Content: text}}, UseVectorSearch: true}
}

func TestChatStructured_Fallback(t *testing.T) {
	env := newTestEnv(t, repository.NewDemoSource())
	rec := env.do(t, http.MethodPost, "/api/v1/chat/structured", chatBody("How many patients are high risk?"))
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[chat.Reply](t, rec)
	assert.Equal(t, "warning", res.Type)
	assert.True(t, res.Result.Fallback)
	assert.NotEmpty(t, res.Result.ConversationID)
	assert.NotEmpty(t, res.Result.Text)
	assert.NotEmpty(t, res.Result.References)

	rec = env.do(t, http.MethodPost, "/api/v1/chat/structured", chat.Request{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatStreamText(t *testing.T) {
	env := newTestEnv(t, repository.NewDemoSource())
	rec := env.do(t, http.MethodPost, "/api/v1/chat", chatBody("summary please"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(headerConversationID))
	assert.NotEmpty(t, strings.TrimSpace(rec.Body.String()))
}

func TestChatWebSocket(t *testing.T) {
	env := newTestEnv(t, repository.NewDemoSource())
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/chat/ws?conversation_id=conv-1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(chatBody("what is the average PHQ?")))

	var chunks int
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var f Frame
		require.NoError(t, conn.ReadJSON(&f))
		assert.Equal(t, "conv-1", f.ConversationID)
		if f.Type == FrameChunk {
			chunks++
			continue
		}
		require.Equal(t, FrameReply, f.Type)
		require.NotNil(t, f.Reply)
		assert.True(t, f.Reply.Fallback)
		break
	}
	assert.Positive(t, chunks)

	require.NoError(t, conn.WriteJSON(chat.Request{}))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, FrameError, f.Type)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, repository.NewDemoSource())
	rec := env.do(t, http.MethodPost, "/api/v1/search", map[string]any{"query": "trauma nightmares avoidance"})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[SearchResponse](t, rec).Result
	assert.NotEmpty(t, res.Hits)
	assert.LessOrEqual(t, len(res.Hits), 3)
	assert.NotEmpty(t, res.Hits[0].Title)

	rec = env.do(t, http.MethodPost, "/api/v1/search", map[string]any{"query": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportWorkbook(t *testing.T) {
	env := newTestEnv(t, repository.NewDemoSource())
	rec := env.do(t, http.MethodGet, "/api/v1/export/dashboard.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), export.SheetPatients)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, repository.NewDemoSource())
	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rep HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, HealthDegraded, rep.Status, "llm and vector search run on fallbacks")
	assert.Equal(t, checkOK, rep.Checks["database"].Status)
	assert.Equal(t, checkOK, rep.Checks["redis"].Status)
	assert.Equal(t, checkFallback, rep.Checks["llm"].Status)

	h := NewHealthHandler(HealthDeps{Database: repository.NewDemoSource(), LLMConfigured: true, VectorConfigured: true}, zap.NewNop())
	assert.Equal(t, HealthHealthy, h.check(context.Background()).Status)
}

func TestHealth_UnhealthyWithoutDataSource(t *testing.T) {
	env := newTestEnv(t, downSource{})
	_, _ = env.cache.Get(context.Background())

	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var rep HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, HealthUnhealthy, rep.Status)
	assert.Equal(t, checkError, rep.Checks["cache"].Status)
}

func TestNotFoundEnvelope(t *testing.T) {
	env := newTestEnv(t, repository.NewDemoSource())
	rec := env.do(t, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ResultError, decode[any](t, rec).Code)
}

func TestRecoverPanic(t *testing.T) {
	h := recoverPanic(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWithTimeout_SkipsStreamingRoutes(t *testing.T) {
	var deadlines []bool
	h := withTimeout(time.Second)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, ok := r.Context().Deadline()
		deadlines = append(deadlines, ok)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/stats", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil))
	assert.Equal(t, []bool{true, false}, deadlines)
}
