package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/yangwenmai/storeops/internal/catalog"
	"github.com/yangwenmai/storeops/internal/chat"
	"github.com/yangwenmai/storeops/internal/engine"
	"github.com/yangwenmai/storeops/internal/intent"
	"github.com/yangwenmai/storeops/internal/model"
	"github.com/yangwenmai/storeops/internal/scoring"
	"github.com/yangwenmai/storeops/internal/store"
)

// ---------------------------------------------------------------------------
// GET /api/state
// ---------------------------------------------------------------------------

type stateResponse struct {
	engine.State
	Counts store.Counts `json:"counts"`
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, r, s.pipeline.State())
}

func (s *Server) writeState(w http.ResponseWriter, r *http.Request, st engine.State) {
	counts, err := s.store.Counts(r.Context())
	if err != nil {
		s.internalError(w, "failed to count items", err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: st, Counts: counts})
}

// ---------------------------------------------------------------------------
// PUT /api/state
// ---------------------------------------------------------------------------

type stateRequest struct {
	Category *model.Category `json:"category"`
	Persona  *model.Persona  `json:"persona"`
}

func (s *Server) handlePutState(w http.ResponseWriter, r *http.Request) {
	var req stateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	next := s.pipeline.State()
	if req.Category != nil {
		next.Category = *req.Category
	}
	if req.Persona != nil {
		next.Persona = *req.Persona
	}

	st, err := s.pipeline.SetState(r.Context(), next)
	if errors.Is(err, catalog.ErrUnknownCategory) || errors.Is(err, engine.ErrUnknownPersona) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, "failed to change state", err)
		return
	}
	s.writeState(w, r, st)
}

// ---------------------------------------------------------------------------
// GET /api/tasks
// ---------------------------------------------------------------------------

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.TaskFilter{
		Status:   splitComma(q.Get("status")),
		Category: model.Category(q.Get("category")),
	}

	tasks, err := s.store.ListTasks(r.Context(), filter)
	if err != nil {
		s.internalError(w, "failed to list tasks", err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// ---------------------------------------------------------------------------
// PATCH /api/tasks/{id}/status
// ---------------------------------------------------------------------------

type statusRequest struct {
	Status string `json:"status"` // "In Progress", "Done", or empty for the next column
}

func (s *Server) handleUpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Status != "" && !model.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "status must be To Do, In Progress or Done")
		return
	}

	task, err := s.pipeline.AdvanceTask(r.Context(), r.PathValue("id"), req.Status)
	s.writeTaskResult(w, task, err)
}

// ---------------------------------------------------------------------------
// POST /api/tasks/{id}/pause|resume|escalate|complete
// ---------------------------------------------------------------------------

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handlePauseTask(w http.ResponseWriter, r *http.Request) {
	s.taskAction(w, r, func(ctx context.Context, id, reason string) (*model.Task, error) {
		return s.pipeline.PauseTask(ctx, id, reason)
	})
}

func (s *Server) handleResumeTask(w http.ResponseWriter, r *http.Request) {
	s.taskAction(w, r, func(ctx context.Context, id, _ string) (*model.Task, error) {
		return s.pipeline.ResumeTask(ctx, id)
	})
}

func (s *Server) handleEscalateTask(w http.ResponseWriter, r *http.Request) {
	s.taskAction(w, r, func(ctx context.Context, id, reason string) (*model.Task, error) {
		return s.pipeline.EscalateTask(ctx, id, reason)
	})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	s.taskAction(w, r, func(ctx context.Context, id, _ string) (*model.Task, error) {
		return s.pipeline.CompleteTask(ctx, id)
	})
}

func (s *Server) taskAction(w http.ResponseWriter, r *http.Request, act func(ctx context.Context, id, reason string) (*model.Task, error)) {
	var req reasonRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	task, err := act(r.Context(), r.PathValue("id"), req.Reason)
	s.writeTaskResult(w, task, err)
}

func (s *Server) writeTaskResult(w http.ResponseWriter, task *model.Task, err error) {
	switch {
	case errors.Is(err, model.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, model.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.internalError(w, "failed to update task", err)
	default:
		writeJSON(w, http.StatusOK, task)
	}
}

// ---------------------------------------------------------------------------
// Recommendations
// ---------------------------------------------------------------------------

func (s *Server) handleListRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListRecommendations(r.Context())
	if err != nil {
		s.internalError(w, "failed to list recommendations", err)
		return
	}
	if recs == nil {
		recs = []model.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleConvertRecommendation(w http.ResponseWriter, r *http.Request) {
	task, err := s.pipeline.ConvertRecommendation(r.Context(), r.PathValue("id"))
	s.writeConverted(w, task, err)
}

func (s *Server) handleDismissRecommendation(w http.ResponseWriter, r *http.Request) {
	_, err := s.pipeline.DismissRecommendation(r.Context(), r.PathValue("id"))
	s.writeDismissed(w, err)
}

// ---------------------------------------------------------------------------
// Insights & alerts
// ---------------------------------------------------------------------------

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := s.store.ListInsights(r.Context())
	if err != nil {
		s.internalError(w, "failed to list insights", err)
		return
	}
	if insights == nil {
		insights = []model.OpsInsight{}
	}
	writeJSON(w, http.StatusOK, insights)
}

func (s *Server) handleConvertInsight(w http.ResponseWriter, r *http.Request) {
	id, ok := intID(w, r)
	if !ok {
		return
	}
	task, err := s.pipeline.ConvertInsight(r.Context(), id, s.pipeline.State().Category)
	s.writeConverted(w, task, err)
}

func (s *Server) handleDismissInsight(w http.ResponseWriter, r *http.Request) {
	id, ok := intID(w, r)
	if !ok {
		return
	}
	_, err := s.pipeline.DismissInsight(r.Context(), id)
	s.writeDismissed(w, err)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.store.ListAlerts(r.Context())
	if err != nil {
		s.internalError(w, "failed to list alerts", err)
		return
	}
	if alerts == nil {
		alerts = []model.OpsAlert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := intID(w, r)
	if !ok {
		return
	}
	_, err := s.pipeline.DismissAlert(r.Context(), id)
	s.writeDismissed(w, err)
}

func intID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return 0, false
	}
	return id, true
}

// writeConverted answers 201 with the new task, or 204 when the source
// record was not there.
func (s *Server) writeConverted(w http.ResponseWriter, task *model.Task, err error) {
	if err != nil {
		s.internalError(w, "failed to convert", err)
		return
	}
	if task == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) writeDismissed(w http.ResponseWriter, err error) {
	if err != nil {
		s.internalError(w, "failed to dismiss", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// POST /api/scans
// ---------------------------------------------------------------------------

func (s *Server) handleRunScan(w http.ResponseWriter, r *http.Request) {
	result, err := s.scans.Analyze(r.Context())
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusServiceUnavailable, "scan cancelled")
		return
	}
	if err != nil {
		s.internalError(w, "scan failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// ---------------------------------------------------------------------------
// POST /api/scans/{session}/restock
// ---------------------------------------------------------------------------

func (s *Server) handleRestock(w http.ResponseWriter, r *http.Request) {
	result, ok := s.scans.Result(r.PathValue("session"))
	if !ok {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}

	tasks, err := s.pipeline.RestockFromScan(r.Context(), result, s.pipeline.State().Category)
	if err != nil {
		s.internalError(w, "failed to create restock tasks", err)
		return
	}
	if len(tasks) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, tasks)
}

// ---------------------------------------------------------------------------
// POST /api/score
// ---------------------------------------------------------------------------

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var summary model.ScanSummary
	if err := json.NewDecoder(r.Body).Decode(&summary); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, scoring.Compute(summary))
}

// ---------------------------------------------------------------------------
// GET /api/suggestions
// ---------------------------------------------------------------------------

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	got := intent.FilterSuggestions(r.URL.Query().Get("q"), s.prompts, s.limit)
	if got == nil {
		got = []model.SuggestionEntry{}
	}
	writeJSON(w, http.StatusOK, got)
}

// ---------------------------------------------------------------------------
// GET/POST /api/chat
// ---------------------------------------------------------------------------

type chatResponse struct {
	SessionID string                   `json:"session_id"`
	Turns     []model.ConversationTurn `json:"turns"`
	Pending   bool                     `json:"pending"`
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: s.chat.ID(),
		Turns:     s.chat.Transcript(),
		Pending:   s.chat.Pending() > 0,
	})
}

type chatRequest struct {
	Text string `json:"text"`
}

func (s *Server) handlePostChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	turn, err := s.chat.Submit(req.Text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "text is required")
	case errors.Is(err, chat.ErrReplyPending):
		writeError(w, http.StatusConflict, "a reply is still pending")
	case errors.Is(err, chat.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "chat session closed")
	case err != nil:
		s.internalError(w, "failed to submit message", err)
	default:
		writeJSON(w, http.StatusAccepted, turn)
	}
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.log.Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, msg)
}
