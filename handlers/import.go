package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kevinaaaquil/lexireader/models"
	"github.com/kevinaaaquil/lexireader/serr"
	"github.com/kevinaaaquil/lexireader/service"
	"github.com/kevinaaaquil/lexireader/utils"
)

// MetadataLookup finds catalogue data for an ISBN.
type MetadataLookup interface {
	ByISBN(ctx context.Context, isbn string) (*service.BookMetadata, error)
}

// ArticleSource downloads readable web articles.
type ArticleSource interface {
	Fetch(ctx context.Context, rawURL string) (*service.Article, error)
}

type ImportHandler struct {
	Books    *BooksHandler
	Metadata MetadataLookup // optional
	Articles ArticleSource
	MaxBytes int64
}

type importURLRequest struct {
	URL          string          `json:"url"`
	Title        string          `json:"title"`
	Category     models.Category `json:"category"`
	TotalLessons int             `json:"totalLessons"`
}

// Import creates a book from an uploaded .txt or .epub file.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	book := models.Book{
		ID:       uuid.NewString(),
		Title:    strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename)),
		Unit:     r.FormValue("unit"),
		Category: models.Category(r.FormValue("category")),
	}
	if n, err := formLessons(r.FormValue("totalLessons")); err != nil {
		handleErr(w, r, err)
		return
	} else if n > 0 {
		book.TotalLessons, book.CurrentLesson = n, 1
	}

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".txt":
		if !utf8.Valid(data) {
			writeError(w, http.StatusBadRequest, "text file must be UTF-8")
			return
		}
		book.Content = strings.TrimSpace(string(data))
	case ".epub":
		epub, err := utils.ParseEPUB(data)
		if err != nil {
			handleErr(w, r, serr.New(err, http.StatusBadRequest, "could not read epub: %v", err))
			return
		}
		book.Content = epub.Text
		if epub.Title != "" {
			book.Title = epub.Title
		}
		if title := h.lookupTitle(r.Context(), epub.ISBN); title != "" {
			book.Title = title
		}
		if len(epub.Cover) > 0 {
			book.CoverImage, book.CoverS3Key = h.Books.storeCover(r.Context(), book.ID, epub.Cover, epub.CoverType)
		}
	default:
		writeError(w, http.StatusBadRequest, "only txt and epub are allowed")
		return
	}
	if t := strings.TrimSpace(r.FormValue("title")); t != "" {
		book.Title = t
	}
	if book.Content == "" {
		writeError(w, http.StatusBadRequest, "file has no text")
		return
	}

	saved, err := h.Books.Library.Save(r.Context(), book)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *ImportHandler) lookupTitle(ctx context.Context, isbn string) string {
	if isbn == "" || h.Metadata == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	meta, err := h.Metadata.ByISBN(ctx, isbn)
	if err != nil {
		slog.Info("isbn lookup failed", "isbn", isbn, "error", err)
		return ""
	}
	return meta.Title
}

// ImportURL saves a web article as a story.
func (h *ImportHandler) ImportURL(w http.ResponseWriter, r *http.Request) {
	var req importURLRequest
	if err := readJSON(r, &req); err != nil {
		handleErr(w, r, err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	article, err := h.Articles.Fetch(r.Context(), req.URL)
	if err != nil {
		handleErr(w, r, serr.New(err, http.StatusBadGateway, "could not import article: %v", err).With("url", req.URL))
		return
	}

	book := models.Book{
		Title:      article.Title,
		Unit:       article.SiteName,
		Category:   req.Category,
		CoverImage: article.ImageURL,
		Content:    article.Text,
	}
	if book.Category == "" {
		book.Category = models.CategoryStory
	}
	if t := strings.TrimSpace(req.Title); t != "" {
		book.Title = t
	}
	if req.TotalLessons > 0 {
		book.TotalLessons, book.CurrentLesson = req.TotalLessons, 1
	}

	saved, err := h.Books.Library.Save(r.Context(), book)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func formLessons(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, serr.New(err, http.StatusBadRequest, "totalLessons must be a positive number")
	}
	return n, nil
}
