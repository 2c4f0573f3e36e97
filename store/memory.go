package store

import (
	"context"
	"slices"
	"sync"

	"github.com/kevinaaaquil/lexireader/models"
)

// MemoryKV is an in-process KeyValue used by tests and local runs without a database.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = slices.Clone(value)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// MemoryBooks is an in-process BookRepository. ReadErr and WriteErr, when set,
// are returned by AllBooks and PutAllBooks.
type MemoryBooks struct {
	mu       sync.RWMutex
	books    []models.Book
	puts     int
	ReadErr  error
	WriteErr error
}

func NewMemoryBooks(books ...models.Book) *MemoryBooks {
	return &MemoryBooks{books: slices.Clone(books)}
}

func (m *MemoryBooks) AllBooks(_ context.Context) ([]models.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return slices.Clone(m.books), nil
}

func (m *MemoryBooks) PutAllBooks(_ context.Context, books []models.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.books = slices.Clone(books)
	return nil
}

// PutCount reports how many times PutAllBooks was called.
func (m *MemoryBooks) PutCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}
