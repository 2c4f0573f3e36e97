package handlers

import (
	"net/http"

	"github.com/kevinaaaquil/lexireader/session"
)

type SessionHandler struct {
	Tracker *session.Tracker
}

type selectRequest struct {
	BookID string `json:"bookId"`
}

type configureRequest struct {
	BookID       string `json:"bookId"`
	TotalLessons int    `json:"totalLessons"`
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Tracker.Snapshot())
}

func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := readJSON(r, &req); err != nil {
		handleErr(w, r, err)
		return
	}
	snap, err := h.Tracker.Select(req.BookID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) Configure(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := readJSON(r, &req); err != nil {
		handleErr(w, r, err)
		return
	}
	snap, err := h.Tracker.Configure(r.Context(), req.BookID, req.TotalLessons)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) ToggleTimer(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Tracker.ToggleTimer()
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := readJSON(r, &req); err != nil {
		handleErr(w, r, err)
		return
	}
	snap, err := h.Tracker.Advance(r.Context(), req.BookID)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Tracker.Close())
}
