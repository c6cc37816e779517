package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	middleware "github.com/markdave123-py/AmityBot/internal/api/middlewares"
	"github.com/markdave123-py/AmityBot/internal/core/rag"
	"github.com/markdave123-py/AmityBot/internal/models"
)

// Answerer is the orchestrator surface the chat routes use.
type Answerer interface {
	Answer(ctx context.Context, question string, role models.Role, sessionID string) (rag.Answer, error)
	AnswerStream(ctx context.Context, question string, role models.Role) (<-chan string, error)
	Record(ctx context.Context, sessionID, question, answer string)
	History(ctx context.Context, sessionID string) ([]models.Turn, error)
}

type ChatHandler struct {
	answers Answerer
	logger  *slog.Logger
}

func NewChatHandler(answers Answerer, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{answers: answers, logger: logger}
}

type ChatRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	SessionID  string   `json:"session_id"`
	Result     string   `json:"result"`
	SourceDocs []string `json:"source_docs"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	role := middleware.RoleFrom(r.Context())
	h.logger.Info("chat question", "role", role, "session_id", req.SessionID, "chars", len(req.Query))

	ans, err := h.answers.Answer(r.Context(), req.Query, role, req.SessionID)
	if err != nil {
		h.rejectQuestion(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{SessionID: ans.SessionID, Result: ans.Text, SourceDocs: []string{}})
}

// ChatStream serves the answer as server-sent events: one "session" event,
// a "message" event per fragment, then "done".
func (h *ChatHandler) ChatStream(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	frags, err := h.answers.AnswerStream(ctx, req.Query, middleware.RoleFrom(ctx))
	if err != nil {
		h.rejectQuestion(w, err)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, "session", sessionID)
	flusher.Flush()

	var answer strings.Builder
	for f := range frags {
		answer.WriteString(f)
		writeEvent(w, "message", f)
		flusher.Flush()
	}

	if ctx.Err() != nil {
		h.logger.Info("chat stream cancelled", "session_id", sessionID)
		return
	}
	writeEvent(w, "done", "")
	flusher.Flush()

	h.answers.Record(ctx, sessionID, strings.TrimSpace(req.Query), answer.String())
}

type historyResponse struct {
	SessionID string        `json:"session_id"`
	Turns     []models.Turn `json:"turns"`
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	turns, err := h.answers.History(r.Context(), id)
	if err != nil {
		h.logger.Error("history lookup failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load session")
		return
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: id, Turns: turns})
}

func (h *ChatHandler) rejectQuestion(w http.ResponseWriter, err error) {
	var verr *rag.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	}
	h.logger.Error("chat failed", "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error. Please try again later.")
}

// writeEvent JSON-encodes data so fragments containing newlines stay one event.
func writeEvent(w http.ResponseWriter, event, data string) {
	payload, _ := json.Marshal(data)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
