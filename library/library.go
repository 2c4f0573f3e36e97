// Package library keeps the book collection in memory and mirrors every change
// to the document store.
package library

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kevinaaaquil/lexireader/models"
	"github.com/kevinaaaquil/lexireader/serr"
	"github.com/kevinaaaquil/lexireader/state"
	"github.com/kevinaaaquil/lexireader/store"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrInvalidCategory = errors.New("invalid category")
)

type Library struct {
	mu    sync.RWMutex
	repo  store.BookRepository
	books []models.Book
}

// Load runs the legacy migration and hydrates the library. When the document
// store cannot be read the library starts empty and the PersistError is returned
// alongside it so the caller can warn about possible data loss.
func Load(ctx context.Context, repo store.BookRepository, m *Migrator) (*Library, error) {
	books, err := m.Run(ctx)
	lib := &Library{repo: repo, books: sanitize(books)}
	return lib, err
}

// sanitize gives uncategorized records the default category.
func sanitize(books []models.Book) []models.Book {
	out := make([]models.Book, 0, len(books))
	for _, b := range books {
		if b.Category == "" {
			b.Category = models.CategoryBook
		}
		out = append(out, b)
	}
	return out
}

func (l *Library) Books() []models.Book {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.books)
}

func (l *Library) Book(id string) (models.Book, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.indexOf(id)
	if i < 0 {
		return models.Book{}, false
	}
	return l.books[i], true
}

// Save inserts book or replaces the stored book with the same id.
func (l *Library) Save(ctx context.Context, book models.Book) (models.Book, error) {
	book.Title = strings.TrimSpace(book.Title)
	if book.Category == "" {
		book.Category = models.CategoryBook
	}
	if !book.Category.Valid() {
		return models.Book{}, serr.New(ErrInvalidCategory, http.StatusBadRequest, "invalid category %q", book.Category)
	}
	if book.TotalLessons < 0 || (book.TotalLessons > 0 && (book.CurrentLesson < 1 || book.CurrentLesson > book.TotalLessons)) {
		return models.Book{}, serr.New(nil, http.StatusBadRequest, "current lesson must be between 1 and %d", book.TotalLessons)
	}
	if book.ID == "" {
		book.ID = uuid.NewString()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := slices.Clone(l.books)
	if i := l.indexOf(book.ID); i >= 0 {
		book.CreatedAt = next[i].CreatedAt
		next[i] = book
	} else {
		if book.CreatedAt.IsZero() {
			book.CreatedAt = time.Now().UTC()
		}
		next = append(next, book)
	}
	return book, l.commit(ctx, next)
}

// Update applies fn to a copy of the book and stores the result.
func (l *Library) Update(ctx context.Context, id string, fn func(b *models.Book) error) (models.Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return models.Book{}, notFound(id)
	}
	b := l.books[i]
	if err := fn(&b); err != nil {
		return l.books[i], err
	}
	b.ID = id

	next := slices.Clone(l.books)
	next[i] = b
	return b, l.commit(ctx, next)
}

func (l *Library) SetProgress(ctx context.Context, id string, page int) (models.Book, error) {
	if page < 0 {
		return models.Book{}, serr.New(nil, http.StatusBadRequest, "page must not be negative")
	}
	return l.Update(ctx, id, func(b *models.Book) error {
		b.LastReadPage = page
		return nil
	})
}

func (l *Library) Delete(ctx context.Context, id string) (models.Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return models.Book{}, notFound(id)
	}
	removed := l.books[i]
	next := slices.Delete(slices.Clone(l.books), i, i+1)
	return removed, l.commit(ctx, next)
}

// commit swaps in next and writes it through. The in-memory state is kept even
// when the write fails.
func (l *Library) commit(ctx context.Context, next []models.Book) error {
	l.books = next
	if err := l.repo.PutAllBooks(ctx, next); err != nil {
		return &state.PersistError{Key: "books", Err: fmt.Errorf("save books: %w", err)}
	}
	return nil
}

func (l *Library) indexOf(id string) int {
	return slices.IndexFunc(l.books, func(b models.Book) bool { return b.ID == id })
}

func notFound(id string) error {
	return serr.New(ErrBookNotFound, http.StatusNotFound, "book not found").With("book_id", id)
}
