package store

import (
	"context"
	"errors"

	"github.com/kevinaaaquil/lexireader/models"
)

var ErrNotFound = errors.New("not found")

// KeyValue stores small settings and cache values as opaque bytes.
type KeyValue interface {
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// BookRepository is the document collection holding the library.
type BookRepository interface {
	AllBooks(ctx context.Context) ([]models.Book, error)
	// PutAllBooks makes the stored collection equal to books.
	PutAllBooks(ctx context.Context, books []models.Book) error
}
