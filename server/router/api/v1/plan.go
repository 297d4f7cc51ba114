package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/planweaver/plugin/planner/cache"
	"github.com/hrygo/planweaver/plugin/planner/convctx"
	"github.com/hrygo/planweaver/plugin/planner/inject"
	"github.com/hrygo/planweaver/store"
)

// ActivityResponse is one activity in API responses.
type ActivityResponse struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// PlanResponse is a daily schedule in API responses.
type PlanResponse struct {
	UID          string             `json:"uid"`
	Date         string             `json:"date"`
	Activities   []ActivityResponse `json:"activities"`
	RoundsUsed   int                `json:"rounds_used"`
	QualityScore float64            `json:"quality_score"`
	Model        string             `json:"model,omitempty"`
	Provider     string             `json:"provider,omitempty"`
}

func toPlanResponse(s *store.DailySchedule) *PlanResponse {
	resp := &PlanResponse{
		UID:          s.UID,
		Date:         s.Date,
		Activities:   make([]ActivityResponse, 0, len(s.Activities)),
		RoundsUsed:   s.RoundsUsed,
		QualityScore: s.QualityScore,
		Model:        s.Model,
		Provider:     s.Provider,
	}
	for i := range s.Activities {
		a := &s.Activities[i]
		resp.Activities = append(resp.Activities, ActivityResponse{
			Start:       a.StartClock(),
			End:         a.EndClock(),
			Title:       a.Title,
			Description: a.Description,
			Type:        a.Type,
		})
	}
	return resp
}

// GetTodayPlan returns today's schedule.
// GET /api/v1/plan/today
func (s *APIV1Service) GetTodayPlan(c echo.Context) error {
	date := time.Now().In(s.Profile.Location()).Format(store.DateLayout)

	plan, err := s.Reader.GetByDate(c.Request().Context(), date)
	if err != nil {
		if errors.Is(err, store.ErrScheduleNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "no schedule for " + date})
		}
		slog.Error("failed to load today's plan", "date", date, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load plan"})
	}
	return c.JSON(http.StatusOK, toPlanResponse(plan))
}

// ListRecentPlans returns the most recent schedules, newest first.
// GET /api/v1/plan/recent?limit=7
func (s *APIV1Service) ListRecentPlans(c echo.Context) error {
	limit := 7
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		limit = n
	}

	plans, err := s.Lister.ListRecentSchedules(c.Request().Context(), limit)
	if err != nil {
		slog.Error("failed to list recent plans", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list plans"})
	}

	resp := make([]*PlanResponse, 0, len(plans))
	for _, p := range plans {
		resp = append(resp, toPlanResponse(p))
	}
	return c.JSON(http.StatusOK, resp)
}

// GeneratePlanRequest is the body of a generation request.
type GeneratePlanRequest struct {
	Date  string `json:"date,omitempty"` // defaults to today
	Force bool   `json:"force,omitempty"`
}

// GeneratePlan generates (or returns) the schedule for a date.
// POST /api/v1/plan/generate
func (s *APIV1Service) GeneratePlan(c echo.Context) error {
	var req GeneratePlanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	date := req.Date
	if date == "" {
		date = time.Now().In(s.Profile.Location()).Format(store.DateLayout)
	} else if _, err := time.Parse(store.DateLayout, date); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
	}

	plan, err := s.Generator.Generate(c.Request().Context(), date, req.Force)
	if err != nil {
		slog.Error("plan generation failed", "date", date, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "generation failed"})
	}
	return c.JSON(http.StatusOK, toPlanResponse(plan))
}

// PlanStatsResponse aggregates operational counters.
type PlanStatsResponse struct {
	Mode    string                 `json:"mode"`
	Cache   cache.Stats            `json:"cache"`
	Context convctx.Stats          `json:"context"`
	Inject  *inject.OptimizerStats `json:"inject,omitempty"`
}

// GetPlanStats returns cache, conversation-context and injection counters.
// GET /api/v1/plan/stats
func (s *APIV1Service) GetPlanStats(c echo.Context) error {
	resp := PlanStatsResponse{
		Mode:    s.Decider.Mode(),
		Cache:   s.Reader.Stats(c.Request().Context()),
		Context: s.Context.Stats(),
	}
	if injectStats, ok := s.Decider.InjectStats(); ok {
		resp.Inject = &injectStats
	}
	return c.JSON(http.StatusOK, resp)
}
