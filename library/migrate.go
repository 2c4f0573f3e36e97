package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kevinaaaquil/lexireader/models"
	"github.com/kevinaaaquil/lexireader/state"
	"github.com/kevinaaaquil/lexireader/store"
)

// LegacyBooksKey is where books lived before the document store existed.
const LegacyBooksKey = "minimal-reader-books-v5"

// Migrator moves legacy key-value books into the document store. Run does the
// work at most once; later calls return the first result.
type Migrator struct {
	kv   store.KeyValue
	repo store.BookRepository

	once     sync.Once
	books    []models.Book
	err      error
	migrated bool
}

func NewMigrator(kv store.KeyValue, repo store.BookRepository) *Migrator {
	return &Migrator{kv: kv, repo: repo}
}

// Migrated reports whether legacy data was found and copied.
func (m *Migrator) Migrated() bool {
	return m.migrated
}

func (m *Migrator) Run(ctx context.Context) ([]models.Book, error) {
	m.once.Do(func() {
		m.books, m.err = m.run(ctx)
	})
	return m.books, m.err
}

func (m *Migrator) run(ctx context.Context) ([]models.Book, error) {
	if legacy, ok := m.legacyBooks(ctx); ok {
		slog.Info("migrating legacy books to document store", "count", len(legacy))
		if err := m.repo.PutAllBooks(ctx, legacy); err != nil {
			return legacy, &state.PersistError{Key: LegacyBooksKey, Err: fmt.Errorf("migrate books: %w", err)}
		}
		if err := m.kv.Delete(ctx, LegacyBooksKey); err != nil {
			slog.Warn("legacy books migrated but key not removed", "error", err)
		}
		m.migrated = true
		slog.Info("legacy books migrated")
		return legacy, nil
	}

	books, err := m.repo.AllBooks(ctx)
	if err != nil {
		return nil, &state.PersistError{Key: "books", Err: fmt.Errorf("load books: %w", err)}
	}
	return books, nil
}

// legacyBooks returns the legacy collection when it is present, well formed
// and non-empty.
func (m *Migrator) legacyBooks(ctx context.Context) ([]models.Book, bool) {
	raw, err := m.kv.Get(ctx, LegacyBooksKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		slog.Warn("cannot read legacy books", "error", err)
		return nil, false
	}

	var books []models.Book
	if err := json.Unmarshal(raw, &books); err != nil {
		slog.Warn("legacy books are malformed; skipping migration", "error", err)
		return nil, false
	}
	if len(books) == 0 {
		return nil, false
	}
	return books, true
}
