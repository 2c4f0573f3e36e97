// Package session tracks the book that is open for reading, its lesson and the
// reading timer.
package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kevinaaaquil/lexireader/library"
	"github.com/kevinaaaquil/lexireader/models"
	"github.com/kevinaaaquil/lexireader/serr"
	"github.com/kevinaaaquil/lexireader/state"
)

type State string

const (
	Idle          State = "idle"
	LessonPending State = "lesson-pending"
	InLesson      State = "in-lesson"
)

// Books is the part of the library the tracker needs.
type Books interface {
	Book(id string) (models.Book, bool)
	Update(ctx context.Context, id string, fn func(b *models.Book) error) (models.Book, error)
}

type Snapshot struct {
	State           State  `json:"state"`
	BookID          string `json:"bookId,omitempty"`
	CurrentLesson   int    `json:"currentLesson,omitempty"`
	TotalLessons    int    `json:"totalLessons,omitempty"`
	TimerRunning    bool   `json:"timerRunning"`
	TimerWasStarted bool   `json:"timerWasStarted"`
	Elapsed         string `json:"elapsed"`
}

type Tracker struct {
	mu    sync.Mutex
	books Books
	now   func() time.Time

	state      State
	bookID     string
	start      time.Time
	running    bool
	wasStarted bool
	frozen     time.Duration
}

func NewTracker(books Books, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{books: books, now: now, state: Idle}
}

// Select opens bookID. A book without lessons waits for Configure.
func (t *Tracker) Select(bookID string) (Snapshot, error) {
	book, ok := t.books.Book(bookID)
	if !ok {
		return Snapshot{}, bookNotFound(bookID)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.bookID = bookID
	t.resetTimer()
	if !book.HasLessons() {
		t.state = LessonPending
	} else {
		t.state = InLesson
	}
	return t.snapshot(book), nil
}

// Configure splits bookID into n lessons, starting at the first one, and opens it.
func (t *Tracker) Configure(ctx context.Context, bookID string, n int) (Snapshot, error) {
	if n < 1 {
		return Snapshot{}, serr.New(nil, http.StatusUnprocessableEntity, "a book needs at least one lesson").
			With("lessons", fmt.Sprint(n))
	}
	book, err := t.books.Update(ctx, bookID, func(b *models.Book) error {
		b.TotalLessons = n
		b.CurrentLesson = 1
		return nil
	})
	if err != nil && !state.IsPersistError(err) {
		return Snapshot{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.bookID = bookID
	t.state = InLesson
	t.resetTimer()
	return t.snapshot(book), err
}

// ToggleTimer starts a stopped timer from zero or pauses a running one.
func (t *Tracker) ToggleTimer() (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != InLesson {
		return Snapshot{}, serr.New(nil, http.StatusConflict, "no lesson is open")
	}
	if t.running {
		t.frozen = t.now().Sub(t.start)
		t.running = false
		t.start = time.Time{}
	} else {
		t.start = t.now()
		t.running = true
		t.wasStarted = true
		t.frozen = 0
	}
	book, _ := t.books.Book(t.bookID)
	return t.snapshot(book), nil
}

// Advance moves bookID to its next lesson from the first page. On the last
// lesson it does nothing.
func (t *Tracker) Advance(ctx context.Context, bookID string) (Snapshot, error) {
	book, ok := t.books.Book(bookID)
	if !ok {
		return Snapshot{}, bookNotFound(bookID)
	}
	if !book.HasLessons() || book.CurrentLesson >= book.TotalLessons {
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.snapshotFor(book), nil
	}

	book, err := t.books.Update(ctx, bookID, func(b *models.Book) error {
		if b.CurrentLesson < b.TotalLessons {
			b.CurrentLesson++
			b.LastReadPage = 0
		}
		return nil
	})
	if err != nil && !state.IsPersistError(err) {
		return Snapshot{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.bookID = bookID
	t.state = InLesson
	t.resetTimer()
	return t.snapshot(book), err
}

// Close returns to the library.
func (t *Tracker) Close() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Idle
	t.bookID = ""
	t.resetTimer()
	return t.snapshot(models.Book{})
}

// Elapsed renders the reading time of the open lesson.
func (t *Tracker) Elapsed() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return FormatElapsed(t.elapsed())
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	book, _ := t.books.Book(t.bookID)
	return t.snapshot(book)
}

// FormatElapsed renders d as MM:SS. Minutes keep growing past 99.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func (t *Tracker) elapsed() time.Duration {
	if t.running {
		return t.now().Sub(t.start)
	}
	return t.frozen
}

func (t *Tracker) resetTimer() {
	t.running = false
	t.wasStarted = false
	t.start = time.Time{}
	t.frozen = 0
}

// snapshotFor reports the tracker state, or the idle view of book when another
// book is open.
func (t *Tracker) snapshotFor(book models.Book) Snapshot {
	if book.ID == t.bookID {
		return t.snapshot(book)
	}
	return Snapshot{State: Idle, BookID: book.ID, CurrentLesson: book.CurrentLesson, TotalLessons: book.TotalLessons, Elapsed: FormatElapsed(0)}
}

func (t *Tracker) snapshot(book models.Book) Snapshot {
	s := Snapshot{
		State:           t.state,
		BookID:          t.bookID,
		TimerRunning:    t.running,
		TimerWasStarted: t.wasStarted,
		Elapsed:         FormatElapsed(t.elapsed()),
	}
	if t.state != Idle && book.ID == t.bookID {
		s.CurrentLesson = book.CurrentLesson
		s.TotalLessons = book.TotalLessons
	}
	return s
}

func bookNotFound(id string) error {
	return serr.New(library.ErrBookNotFound, http.StatusNotFound, "book not found").With("book_id", id)
}
