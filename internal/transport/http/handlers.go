package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"quizhub-service/internal/session"
)

type selectRequest struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

type navigateRequest struct {
	Action string `json:"action"`
	Index  int    `json:"index"`
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.Quiz(r.Context(), IdentityFrom(r.Context()), chi.URLParam(r, "quizID"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, quiz)
}

func (h *Handler) startAttempt(w http.ResponseWriter, r *http.Request) {
	who := IdentityFrom(r.Context())
	snap, err := h.service.Start(r.Context(), who, chi.URLParam(r, "quizID"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, snap)
}

func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context(), IdentityFrom(r.Context()), chi.URLParam(r, "attemptID"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (h *Handler) discardAttempt(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Discard(r.Context(), IdentityFrom(r.Context()), chi.URLParam(r, "attemptID")); err != nil {
		h.renderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) selectOption(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	snap, err := h.service.Select(r.Context(), IdentityFrom(r.Context()), chi.URLParam(r, "attemptID"), req.QuestionID, req.OptionID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (h *Handler) navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}
	snap, err := h.move(r, chi.URLParam(r, "attemptID"), req)
	if err != nil {
		if errors.Is(err, errUnknownAction) {
			badRequest(w, r, err.Error())
			return
		}
		h.renderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (h *Handler) move(r *http.Request, attemptID string, req navigateRequest) (session.Snapshot, error) {
	who := IdentityFrom(r.Context())
	switch req.Action {
	case "next":
		return h.service.Next(r.Context(), who, attemptID)
	case "previous", "prev":
		return h.service.Previous(r.Context(), who, attemptID)
	case "jump":
		return h.service.JumpTo(r.Context(), who, attemptID, req.Index)
	default:
		return session.Snapshot{}, errUnknownAction
	}
}

// submit finalizes the attempt. A validation failure carries the unanswered
// question ids in the error body.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	who := IdentityFrom(r.Context())
	attemptID := chi.URLParam(r, "attemptID")
	snap, err := h.service.Submit(r.Context(), who, attemptID)
	if err != nil {
		h.logger.Info("submit rejected", zap.String("attempt_id", attemptID), zap.Error(err))
		h.renderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	index := 0
	if raw := r.URL.Query().Get("index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(w, r, "index must be an integer")
			return
		}
		index = n
	}
	snap, err := h.service.Review(r.Context(), IdentityFrom(r.Context()), chi.URLParam(r, "submissionID"), index)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.History(r.Context(), IdentityFrom(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entries)
}

func (h *Handler) bestResult(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.BestResult(r.Context(), IdentityFrom(r.Context()), chi.URLParam(r, "userID"), chi.URLParam(r, "quizID"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entry)
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	board, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, board)
}
