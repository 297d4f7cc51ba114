package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/planweaver/internal/profile"
	"github.com/hrygo/planweaver/plugin/planner/cache"
	"github.com/hrygo/planweaver/plugin/planner/convctx"
	"github.com/hrygo/planweaver/plugin/planner/inject"
	"github.com/hrygo/planweaver/store"
)

type fakePlanBackend struct {
	plans    map[string]*store.DailySchedule
	genCalls int
	force    bool
}

func (f *fakePlanBackend) GetByDate(_ context.Context, date string) (*store.DailySchedule, error) {
	p, ok := f.plans[date]
	if !ok {
		return nil, store.ErrScheduleNotFound
	}
	return p, nil
}

func (f *fakePlanBackend) Stats(context.Context) cache.Stats {
	return cache.Stats{Hits: 3, Misses: 1, Size: 1}
}

func (f *fakePlanBackend) Generate(_ context.Context, date string, force bool) (*store.DailySchedule, error) {
	f.genCalls++
	f.force = force
	p := &store.DailySchedule{UID: "generated", Date: date, Activities: testActivities()}
	f.plans[date] = p
	return p, nil
}

func (f *fakePlanBackend) ListRecentSchedules(_ context.Context, n int) ([]*store.DailySchedule, error) {
	out := make([]*store.DailySchedule, 0, len(f.plans))
	for _, p := range f.plans {
		out = append(out, p)
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

type fakeDecider struct {
	decision *inject.Decision
}

func (f *fakeDecider) Decide(context.Context, string, string, time.Time) (*inject.Decision, error) {
	return f.decision, nil
}

func (f *fakeDecider) Mode() string { return "rule" }

func (f *fakeDecider) InjectStats() (inject.OptimizerStats, bool) {
	return inject.OptimizerStats{ActiveUsers: 1, TotalInjects: 4}, true
}

func testActivities() []store.Activity {
	return []store.Activity{
		{StartMinutes: 540, EndMinutes: 720, Title: "写代码", Description: "专心开发", Type: "工作"},
	}
}

func newTestService(t *testing.T) (*APIV1Service, *fakePlanBackend, *echo.Echo) {
	t.Helper()
	p := profile.Default()
	backend := &fakePlanBackend{plans: map[string]*store.DailySchedule{}}
	cc := convctx.New(3, 10*time.Minute, time.Minute)
	t.Cleanup(cc.Close)

	decider := &fakeDecider{decision: &inject.Decision{
		Injected: true,
		Fragment: "【当前状态】写代码",
		Intent:   inject.IntentQueryCurrent,
	}}
	svc := NewAPIV1Service(p, backend, backend, backend, decider, cc)

	e := echo.New()
	svc.RegisterRoutes(e)
	return svc, backend, e
}

func today(p *profile.Profile) string {
	return time.Now().In(p.Location()).Format(store.DateLayout)
}

func TestGetTodayPlan(t *testing.T) {
	svc, backend, e := newTestService(t)
	backend.plans[today(svc.Profile)] = &store.DailySchedule{
		UID: "abc", Date: today(svc.Profile), Activities: testActivities(), QualityScore: 0.9,
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plan/today", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "abc", got.UID)
	require.Len(t, got.Activities, 1)
	require.Equal(t, "09:00", got.Activities[0].Start)
	require.Equal(t, "12:00", got.Activities[0].End)
}

func TestGetTodayPlanNotFound(t *testing.T) {
	_, _, e := newTestService(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plan/today", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGeneratePlan(t *testing.T) {
	_, backend, e := newTestService(t)

	body := strings.NewReader(`{"date":"2026-03-01","force":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan/generate", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, backend.genCalls)
	require.True(t, backend.force)

	var got PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "2026-03-01", got.Date)
}

func TestGeneratePlanRejectsBadDate(t *testing.T) {
	_, backend, e := newTestService(t)

	body := strings.NewReader(`{"date":"03/01/2026"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan/generate", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, backend.genCalls)
}

func TestListRecentPlansRejectsBadLimit(t *testing.T) {
	_, _, e := newTestService(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plan/recent?limit=-1", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPlanStats(t *testing.T) {
	_, _, e := newTestService(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plan/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got PlanStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "rule", got.Mode)
	require.Equal(t, uint64(3), got.Cache.Hits)
	require.NotNil(t, got.Inject)
	require.Equal(t, 4, got.Inject.TotalInjects)
}

func TestDecideTurn(t *testing.T) {
	_, _, e := newTestService(t)

	body := strings.NewReader(`{"user_id":"u1","message":"你在干嘛"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/turn/decide", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got inject.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.True(t, got.Injected)
	require.NotEmpty(t, got.Fragment)
}

func TestDecideTurnValidation(t *testing.T) {
	_, _, e := newTestService(t)

	for _, body := range []string{`{}`, `{"user_id":"u1"}`, `{"message":"hi"}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/turn/decide", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}
