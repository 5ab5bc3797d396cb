package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// manualTrigger is the trigger name recorded for runs started over the API.
const manualTrigger = "manual"

// Run history page bounds.
const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// automationView is an automation plus its live binding state.
type automationView struct {
	automation.Automation
	Bound   bool `json:"bound"`
	Running bool `json:"running"`
}

func (s *Server) view(a automation.Automation) automationView {
	return automationView{
		Automation: a,
		Bound:      s.engine.IsBound(a.ID),
		Running:    s.engine.IsRunning(a.ID),
	}
}

// handleListKinds returns the registered trigger, condition and action kinds.
func (s *Server) handleListKinds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Types().Kinds())
}

// handleListAutomations returns every loaded automation.
func (s *Server) handleListAutomations(w http.ResponseWriter, _ *http.Request) {
	list := s.engine.List()
	views := make([]automationView, 0, len(list))
	for _, a := range list {
		views = append(views, s.view(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"automations": views,
		"count":       len(views),
	})
}

// handleGetAutomation returns one automation by ID.
func (s *Server) handleGetAutomation(w http.ResponseWriter, r *http.Request) {
	a, err := s.engine.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(*a))
}

// handleRunAutomation starts a manual run. An optional JSON object body
// becomes the run's trigger data. The request waits for the run to finish.
func (s *Server) handleRunAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, err := decodeRunData(r.Body)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	// The run outlives a client that hangs up mid-request.
	ctx := context.WithoutCancel(r.Context())
	res, err := s.engine.Run(ctx, id, automation.ExecutionContext{
		Trigger:   manualTrigger,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	if err != nil {
		if errors.Is(err, automation.ErrAutomationNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeError(w, http.StatusBadRequest, ErrCodeRunFailed, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleEnableAutomation binds the automation's trigger.
func (s *Server) handleEnableAutomation(w http.ResponseWriter, r *http.Request) {
	s.setEnabled(w, r, true)
}

// handleDisableAutomation releases the automation's trigger.
func (s *Server) handleDisableAutomation(w http.ResponseWriter, r *http.Request) {
	s.setEnabled(w, r, false)
}

func (s *Server) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := chi.URLParam(r, "id")

	var err error
	if enabled {
		err = s.engine.Enable(r.Context(), id)
	} else {
		err = s.engine.Disable(r.Context(), id)
	}
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	a, err := s.engine.Get(id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(*a))
}

// handleListRuns returns recent run history, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeNotFound(w, "run history is not available")
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := s.engine.Get(id); err != nil {
		s.writeEngineError(w, err)
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.runs.ListRuns(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("listing runs failed", "automation_id", id, "error", err)
		writeInternalError(w, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// writeEngineError maps engine errors to HTTP responses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, automation.ErrAutomationNotFound):
		writeNotFound(w, "automation not found")
	case errors.Is(err, automation.ErrUnknownTrigger),
		errors.Is(err, automation.ErrInvalidAutomation):
		writeBadRequest(w, err.Error())
	case errors.Is(err, automation.ErrEngineClosed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeConflict, err.Error())
	default:
		s.logger.Error("automation request failed", "error", err)
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	}
}

// decodeRunData reads an optional JSON object. Empty bodies yield an empty map.
func decodeRunData(body io.Reader) (map[string]any, error) {
	data := map[string]any{}
	if body == nil {
		return data, nil
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.New("failed to read request body")
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.New("body must be a JSON object")
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}
