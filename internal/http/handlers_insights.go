package http

import (
	"net/http"
	"time"

	"moneta/internal/core"
)

type scheduleRequest struct {
	BriefTime     string `json:"brief_time"`
	BudgetAlerts  bool   `json:"budget_alerts"`
	DuesReminders bool   `json:"dues_reminders"`
}

type scheduleResponse struct {
	Owner         string `json:"owner"`
	BriefTime     string `json:"brief_time"`
	BudgetAlerts  bool   `json:"budget_alerts"`
	DuesReminders bool   `json:"dues_reminders"`
}

func toScheduleResponse(cfg core.ScheduleConfig) scheduleResponse {
	return scheduleResponse{
		Owner:         cfg.Owner,
		BriefTime:     cfg.BriefTime,
		BudgetAlerts:  cfg.BudgetAlerts,
		DuesReminders: cfg.DuesReminders,
	}
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}

	cfg, err := s.repo.GetScheduleConfig(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(cfg))
}

func (s *Server) handlePutSchedule(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}

	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	briefTime := req.BriefTime
	if briefTime == "" {
		briefTime = core.DefaultBriefTime
	}
	if _, _, err := core.ParseTimeOfDay(briefTime); err != nil {
		writeServiceError(w, r, err)
		return
	}

	cfg := core.ScheduleConfig{
		Owner:         owner,
		BriefTime:     briefTime,
		BudgetAlerts:  req.BudgetAlerts,
		DuesReminders: req.DuesReminders,
	}
	if err := s.repo.SaveScheduleConfig(r.Context(), cfg); err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Drop the cached copy so the next scheduler tick sees the new prefs.
	s.engine.ConfigCache().Delete(owner)

	writeJSON(w, http.StatusOK, toScheduleResponse(cfg))
}

// handleTriggerBrief generates and dispatches the caller's brief on demand,
// bypassing the configured schedule.
func (s *Server) handleTriggerBrief(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing owner header")
		return
	}

	user, err := s.repo.GetUser(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	brief, err := s.engine.GenerateBrief(r.Context(), user, time.Now())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.engine.Dispatch(r.Context(), brief); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"dispatched": true,
		"kind":       brief.Data["kind"],
	})
}
