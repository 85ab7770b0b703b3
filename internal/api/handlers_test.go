package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nutritrack.io/nutritrack/internal/auth"
	"nutritrack.io/nutritrack/internal/config"
	"nutritrack.io/nutritrack/internal/core"
	"nutritrack.io/nutritrack/internal/logging"
	"nutritrack.io/nutritrack/internal/store"
)

type stubGenerator struct {
	mu       sync.Mutex
	response string
	err      error
}

func (g *stubGenerator) Generate(_ context.Context, _ core.GenerationRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.response, g.err
}

func (g *stubGenerator) set(response string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.response = response
}

type testServer struct {
	handler http.Handler
	gen     *stubGenerator
	db      *store.SQLStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := store.NewSQLStore(context.Background(), filepath.Join(t.TempDir(), "api.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logging.Discard()
	gen := &stubGenerator{}
	tracker := core.NewTrackerService(
		core.NewExtractionService(gen, 5*time.Second, log),
		core.NewJournalService(db, config.DefaultProfile(), log),
		log,
	)
	return &testServer{handler: NewRouter(NewAPIHandler(tracker, log)), gen: gen, db: db}
}

func (s *testServer) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProfile(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/profile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[config.Profile](t, rec)
	assert.Equal(t, config.DefaultProfile(), p)
}

func TestLogMealThenReadDay(t *testing.T) {
	s := newTestServer(t)
	s.gen.set(`{"name":"Eggs on toast","calories":320,"protein":18,"carbs":24,"fat":15}`)

	rec := s.do(t, http.MethodPost, "/api/days/2024-05-06/meals", `{"text":"2 eggs and toast"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	meal := decode[store.MealRecord](t, rec)
	assert.NotEmpty(t, meal.ID)
	assert.Equal(t, "2 eggs and toast", meal.OriginalText)

	rec = s.do(t, http.MethodGet, "/api/days/2024-05-06", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[core.DayView](t, rec)
	assert.False(t, view.Degraded)
	require.Len(t, view.Stats.Meals, 1)
	assert.Equal(t, 320.0, view.Totals.ConsumedCals)

	rec = s.do(t, http.MethodDelete, "/api/meals/"+meal.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/meals/"+meal.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec), "error")
}

func TestLogWorkout(t *testing.T) {
	s := newTestServer(t)
	s.gen.set(`{"name":"Run","caloriesBurned":350,"durationMinutes":30,"intensity":"High"}`)

	rec := s.do(t, http.MethodPost, "/api/days/2024-05-06/workouts", `{"text":"ran 5k"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	w := decode[store.WorkoutRecord](t, rec)
	assert.Equal(t, store.IntensityHigh, w.Intensity)

	rec = s.do(t, http.MethodGet, "/api/weeks/2024-05-08", "")
	require.Equal(t, http.StatusOK, rec.Code)
	week := decode[core.RangeView](t, rec)
	assert.Len(t, week.Days, 7)
	assert.Equal(t, 350.0, week.Summary.TotalBurned)
}

func TestLogMealPhoto(t *testing.T) {
	s := newTestServer(t)
	s.gen.set(`{"name":"Salad","explanation":"A chicken salad.","calories":420,"protein":35,"carbs":12,"fat":24}`)

	rec := s.do(t, http.MethodPost, "/api/days/2024-05-06/meals/photo", `{"image":"data:image/png;base64,aGVsbG8="}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[core.MealFromImage](t, rec)
	assert.Equal(t, "A chicken salad.", res.Explanation)
	assert.Equal(t, "A chicken salad.", res.Meal.OriginalText)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/days/2024-05-06/meals", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/days/2024-05-06/meals", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/days/last-tuesday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/months/2024-13", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.gen.set(`{"name":"Toast"}`)
	rec = s.do(t, http.MethodPost, "/api/days/2024-05-06/meals", `{"text":"toast"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "AI")
}

func TestStoreDown(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.db.Close())

	rec := s.do(t, http.MethodGet, "/api/days/2024-05-06", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[core.DayView](t, rec)
	assert.True(t, view.Degraded)
	assert.Equal(t, config.DefaultProfile().CalorieGoal, view.Stats.CalorieGoal)

	rec = s.do(t, http.MethodGet, "/api/months/2024-05", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[core.RangeView](t, rec).Degraded)

	rec = s.do(t, http.MethodGet, "/api/days/2024-05-06/insight", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.gen.set(`{"name":"Toast","calories":150,"protein":5,"carbs":28,"fat":2}`)
	rec = s.do(t, http.MethodPost, "/api/days/2024-05-06/meals", `{"text":"toast"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestInsightAndAdvice(t *testing.T) {
	s := newTestServer(t)

	s.gen.set("Keep it up!")
	rec := s.do(t, http.MethodGet, "/api/days/2024-05-06/insight", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Keep it up!", decode[map[string]string](t, rec)["insight"])

	s.gen.set("Eat more protein.")
	rec = s.do(t, http.MethodGet, "/api/days/2024-05-06/advice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Eat more protein.", decode[map[string]string](t, rec)["advice"])
}

func TestOwnerAuth(t *testing.T) {
	prev := config.AppConfig
	t.Cleanup(func() { config.AppConfig = prev })
	config.AppConfig.JWTSecret = "test-secret"
	config.AppConfig.OwnerID = "owner"

	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/profile", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/profile", "", "Authorization", "Bearer nonsense")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	stranger, err := auth.GenerateJWT("someone-else", time.Hour)
	require.NoError(t, err)
	rec = s.do(t, http.MethodGet, "/api/profile", "", "Authorization", "Bearer "+stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	token, err := auth.GenerateJWT("owner", time.Hour)
	require.NoError(t, err)
	rec = s.do(t, http.MethodGet, "/api/profile", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}
