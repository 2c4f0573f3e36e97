package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kevinaaaquil/lexireader/library"
	"github.com/kevinaaaquil/lexireader/models"
)

// CoverStorage keeps cover images outside the book records.
type CoverStorage interface {
	Put(ctx context.Context, bookID string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// coverLinker is implemented by storages that can hand out temporary links.
type coverLinker interface {
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

const coverLinkTTL = 15 * time.Minute

type BooksHandler struct {
	Library *library.Library
	Covers  CoverStorage // nil keeps covers inline as data URLs
}

type bookSummary struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Unit          string          `json:"unit,omitempty"`
	Category      models.Category `json:"category"`
	CoverImage    string          `json:"coverImage"`
	LastReadPage  int             `json:"lastReadPage"`
	TotalLessons  int             `json:"totalLessons,omitempty"`
	CurrentLesson int             `json:"currentLesson,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type progressRequest struct {
	Page int `json:"page"`
}

func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	books := h.Library.Books()
	out := make([]bookSummary, 0, len(books))
	for _, b := range books {
		out = append(out, bookSummary{
			ID:            b.ID,
			Title:         b.Title,
			Unit:          b.Unit,
			Category:      b.Category,
			CoverImage:    b.CoverImage,
			LastReadPage:  b.LastReadPage,
			TotalLessons:  b.TotalLessons,
			CurrentLesson: b.CurrentLesson,
			CreatedAt:     b.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	book, ok := h.Library.Book(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// Create adds a book. Inline data URL covers are moved to cover storage.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var book models.Book
	if err := readJSON(r, &book); err != nil {
		handleErr(w, r, err)
		return
	}
	book.ID = uuid.NewString()
	h.save(w, r, book, http.StatusCreated)
}

// Replace overwrites the book named in the path.
func (h *BooksHandler) Replace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, ok := h.Library.Book(id)
	if !ok {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	var book models.Book
	if err := readJSON(r, &book); err != nil {
		handleErr(w, r, err)
		return
	}
	book.ID = id
	if book.CoverS3Key == "" && book.CoverImage == existing.CoverImage {
		book.CoverS3Key = existing.CoverS3Key
	}
	h.save(w, r, book, http.StatusOK)
}

func (h *BooksHandler) save(w http.ResponseWriter, r *http.Request, book models.Book, status int) {
	if data, contentType, ok := decodeDataURL(book.CoverImage); ok {
		book.CoverImage, book.CoverS3Key = h.storeCover(r.Context(), book.ID, data, contentType)
	}
	saved, err := h.Library.Save(r.Context(), book)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, status, saved)
}

func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	removed, err := h.Library.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleErr(w, r, err)
		return
	}
	if removed.CoverS3Key != "" && h.Covers != nil {
		if err := h.Covers.Delete(r.Context(), removed.CoverS3Key); err != nil {
			slog.Warn("failed to delete cover", "book_id", removed.ID, "key", removed.CoverS3Key, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BooksHandler) Progress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := readJSON(r, &req); err != nil {
		handleErr(w, r, err)
		return
	}
	book, err := h.Library.SetProgress(r.Context(), chi.URLParam(r, "id"), req.Page)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progressRequest{Page: book.LastReadPage})
}

// Cover serves the stored cover image of a book.
func (h *BooksHandler) Cover(w http.ResponseWriter, r *http.Request) {
	book, ok := h.Library.Book(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	if book.CoverS3Key != "" && h.Covers != nil {
		if linker, ok := h.Covers.(coverLinker); ok {
			url, err := linker.PresignedURL(r.Context(), book.CoverS3Key, coverLinkTTL)
			if err == nil {
				http.Redirect(w, r, url, http.StatusFound)
				return
			}
			slog.Warn("cover link failed, streaming instead", "book_id", book.ID, "error", err)
		}
		body, contentType, err := h.Covers.Get(r.Context(), book.CoverS3Key)
		if err != nil {
			handleErr(w, r, err)
			return
		}
		defer body.Close()
		if contentType == "" {
			contentType = "image/jpeg"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "private, max-age=86400")
		if _, err := io.Copy(w, body); err != nil {
			slog.Warn("cover stream interrupted", "book_id", book.ID, "error", err)
		}
		return
	}
	if data, contentType, ok := decodeDataURL(book.CoverImage); ok {
		w.Header().Set("Content-Type", contentType)
		http.ServeContent(w, r, "", book.CreatedAt, bytes.NewReader(data))
		return
	}
	writeError(w, http.StatusNotFound, "book has no stored cover")
}

// storeCover uploads a cover and returns the coverImage URL and object key to
// save on the book. Without cover storage, or when the upload fails, the cover
// stays inline.
func (h *BooksHandler) storeCover(ctx context.Context, bookID string, data []byte, contentType string) (string, string) {
	if h.Covers != nil {
		key, err := h.Covers.Put(ctx, bookID, data, contentType)
		if err == nil {
			return "/api/books/" + bookID + "/cover", key
		}
		slog.Warn("cover upload failed, keeping it inline", "book_id", bookID, "error", err)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), ""
}

// decodeDataURL decodes "data:<type>;base64,<payload>" image URLs.
func decodeDataURL(s string) ([]byte, string, bool) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", false
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", false
	}
	contentType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 || !strings.HasPrefix(contentType, "image/") {
		return nil, "", false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, "", false
	}
	return data, contentType, true
}
