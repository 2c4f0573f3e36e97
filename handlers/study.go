package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kevinaaaquil/lexireader/library"
	"github.com/kevinaaaquil/lexireader/models"
	"github.com/kevinaaaquil/lexireader/study"
)

type StudyHandler struct {
	Study   *study.Reconciler
	Library *library.Library
}

type generateRequest struct {
	BookID     string `json:"bookId"`
	LessonText string `json:"lessonText"`
}

type ipaResponse struct {
	Term string `json:"term"`
	IPA  string `json:"ipa"`
}

type audioResponse struct {
	Term  string `json:"term"`
	Audio string `json:"audio"`
}

func (h *StudyHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Study.StudyItems(r.URL.Query().Get("bookId")))
}

// AddItem saves a highlighted term. The card is filled in the background.
func (h *StudyHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var c study.Candidate
	if err := readJSON(r, &c); err != nil {
		handleErr(w, r, err)
		return
	}
	if _, ok := h.Library.Book(c.BookID); !ok {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	item, err := h.Study.AddStudyItem(r.Context(), c)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, item)
}

func (h *StudyHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var item models.StudyItem
	if err := readJSON(r, &item); err != nil {
		handleErr(w, r, err)
		return
	}
	item.ID = chi.URLParam(r, "id")
	updated, err := h.Study.UpdateStudyItem(r.Context(), item)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *StudyHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Study.DeleteStudyItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StudyHandler) IPA(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ipa, err := h.Study.LookupIPA(r.Context(), q.Get("bookId"), q.Get("term"))
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ipaResponse{Term: q.Get("term"), IPA: ipa})
}

func (h *StudyHandler) Audio(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clip, err := h.Study.Audio(r.Context(), q.Get("bookId"), q.Get("term"))
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, audioResponse{Term: q.Get("term"), Audio: clip})
}

func (h *StudyHandler) ListExpressions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lesson := 0
	if v := q.Get("lesson"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "lesson must be a number")
			return
		}
		lesson = n
	}
	writeJSON(w, http.StatusOK, h.Study.Expressions(q.Get("bookId"), lesson))
}

// GenerateExpressions rebuilds the glossary of the book's current lesson.
func (h *StudyHandler) GenerateExpressions(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := readJSON(r, &req); err != nil {
		handleErr(w, r, err)
		return
	}
	book, ok := h.Library.Book(req.BookID)
	if !ok {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	items, err := h.Study.GenerateExpressions(r.Context(), book, req.LessonText)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, items)
}

func (h *StudyHandler) UpdateExpression(w http.ResponseWriter, r *http.Request) {
	var item models.ExpressionItem
	if err := readJSON(r, &item); err != nil {
		handleErr(w, r, err)
		return
	}
	item.ID = chi.URLParam(r, "id")
	updated, err := h.Study.UpdateExpression(r.Context(), item)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *StudyHandler) DeleteExpression(w http.ResponseWriter, r *http.Request) {
	if err := h.Study.DeleteExpression(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
