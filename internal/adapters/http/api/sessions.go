package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/clockread/internal/adapters/repository"
	"github.com/okian/clockread/internal/audio"
	"github.com/okian/clockread/internal/domain/types"
)

const (
	defaultListLimit = 20
	maxRequestBytes  = 1 << 20
)

// Session statuses reported to clients.
const (
	StatusScored    = "scored"
	StatusStored    = "stored"
	StatusDuplicate = "duplicate"
)

// SessionsHandler serves scoring submissions and stored results.
type SessionsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps Dependencies, maxLimit int) *SessionsHandler {
	if maxLimit < 1 {
		maxLimit = defaultListLimit
	}
	return &SessionsHandler{deps: deps, maxLimit: maxLimit}
}

// sessionEntry is one row of a session listing.
type sessionEntry struct {
	SessionID string        `json:"session_id"`
	CreatedAt time.Time     `json:"created_at"`
	Responses int           `json:"responses"`
	Summary   types.Summary `json:"summary"`
}

// HandleSessions handles POST /sessions and GET /sessions?limit=N.
func (h *SessionsHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *SessionsHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_session"
	ctx := r.Context()

	var req types.ScoreRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)

	// Idempotency check: mark as seen first, roll back when scoring fails.
	if req.SessionID != "" && h.deps.SeenAndRecord(ctx, req.SessionID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: StatusDuplicate, SessionID: req.SessionID, Duplicate: true})
		return
	}

	sess, err := h.deps.Score(ctx, &req)
	if err != nil {
		if req.SessionID != "" {
			h.deps.Unrecord(ctx, req.SessionID)
		}
		switch {
		case errors.Is(err, types.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		case errors.Is(err, audio.ErrNoResponsesDetected):
			writeError(w, http.StatusUnprocessableEntity, "no_responses", WrapKind(op, ErrNoResponses, err))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternalError, err))
		}
		return
	}
	writeJSON(w, http.StatusCreated, types.FromSession(sess, StatusScored))
}

func (h *SessionsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_sessions"

	n := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}

	sessions, err := h.deps.Recent(r.Context(), n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternalError, err))
		return
	}
	out := make([]sessionEntry, len(sessions))
	for i, s := range sessions {
		resp := types.FromSession(s, StatusStored)
		out[i] = sessionEntry{
			SessionID: resp.SessionID,
			CreatedAt: resp.CreatedAt,
			Responses: resp.Responses,
			Summary:   resp.Summary,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetSession handles GET /sessions/{session_id} requests.
func (h *SessionsHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	sess, err := h.deps.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternalError, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromSession(sess, StatusStored))
}
