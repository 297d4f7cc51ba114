package v1

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// DecideTurnRequest is one user message submitted for a decision.
type DecideTurnRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// DecideTurn runs the injection decision for a user message and returns the
// fragment to prepend to the reply prompt, if any.
// POST /api/v1/turn/decide
func (s *APIV1Service) DecideTurn(c echo.Context) error {
	var req DecideTurnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.UserID) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	decision, err := s.Decider.Decide(c.Request().Context(), req.UserID, req.Message, time.Now())
	if err != nil {
		slog.Error("turn decision failed", "user", req.UserID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "decision failed"})
	}
	return c.JSON(http.StatusOK, decision)
}
