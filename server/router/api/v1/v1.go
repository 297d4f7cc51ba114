// Package v1 exposes the planning core over HTTP.
package v1

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/planweaver/internal/profile"
	"github.com/hrygo/planweaver/plugin/planner/cache"
	"github.com/hrygo/planweaver/plugin/planner/convctx"
	"github.com/hrygo/planweaver/plugin/planner/inject"
	"github.com/hrygo/planweaver/store"
)

// PlanReader is the cached read surface over schedules.
type PlanReader interface {
	GetByDate(ctx context.Context, date string) (*store.DailySchedule, error)
	Stats(ctx context.Context) cache.Stats
}

// PlanGenerator produces (or returns) the schedule for a date.
type PlanGenerator interface {
	Generate(ctx context.Context, date string, force bool) (*store.DailySchedule, error)
}

// PlanLister reads recent schedules straight from the store.
type PlanLister interface {
	ListRecentSchedules(ctx context.Context, n int) ([]*store.DailySchedule, error)
}

// TurnDecider runs one injection decision.
type TurnDecider interface {
	Decide(ctx context.Context, userID, message string, now time.Time) (*inject.Decision, error)
	Mode() string
	InjectStats() (inject.OptimizerStats, bool)
}

// APIV1Service wires the HTTP handlers to the planning components.
type APIV1Service struct {
	Profile   *profile.Profile
	Reader    PlanReader
	Generator PlanGenerator
	Lister    PlanLister
	Decider   TurnDecider
	Context   *convctx.Cache
}

func NewAPIV1Service(p *profile.Profile, reader PlanReader, generator PlanGenerator, lister PlanLister, decider TurnDecider, ctxCache *convctx.Cache) *APIV1Service {
	return &APIV1Service{
		Profile:   p,
		Reader:    reader,
		Generator: generator,
		Lister:    lister,
		Decider:   decider,
		Context:   ctxCache,
	}
}

// RegisterRoutes mounts the v1 API under /api/v1.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")

	g.GET("/plan/today", s.GetTodayPlan)
	g.GET("/plan/recent", s.ListRecentPlans)
	g.POST("/plan/generate", s.GeneratePlan)
	g.GET("/plan/stats", s.GetPlanStats)
	g.POST("/turn/decide", s.DecideTurn)
}
