// Package study keeps the study lab and the expression glossary. New study
// items are returned immediately and filled in later by background enrichment
// whose results are merged back through Run.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/kevinaaaquil/lexireader/enrich"
	"github.com/kevinaaaquil/lexireader/models"
	"github.com/kevinaaaquil/lexireader/serr"
	"github.com/kevinaaaquil/lexireader/state"
	"github.com/kevinaaaquil/lexireader/store"
	"golang.org/x/text/unicode/norm"
)

const (
	StudyItemsKey  = "minimal-reader-studylab-v5"
	ExpressionsKey = "minimal-reader-expressions-v3"
	IPACacheKey    = "minimal-reader-ipa-cache-v1"
	AudioCacheKey  = "minimal-reader-audio-cache-v1"
)

var (
	ErrDuplicate       = errors.New("term already saved")
	ErrItemNotFound    = errors.New("study item not found")
	ErrNothingFound    = errors.New("no expressions found in text")
	ErrNoResult        = errors.New("service returned no expressions")
	ErrSpeechDisabled  = errors.New("speech is not configured")
	ErrInvalidArgument = errors.New("invalid argument")
)

// TextEnricher produces study material for terms and texts.
type TextEnricher interface {
	StudyCardData(ctx context.Context, term, context string) (models.StudyCard, error)
	GenerateExpressions(ctx context.Context, text string) ([]models.ExpressionCandidate, error)
	IPA(ctx context.Context, term string) (string, error)
}

// Speaker turns text into an audio clip.
type Speaker interface {
	Synthesize(ctx context.Context, apiKey, text, voiceID string) ([]byte, error)
}

// SpeechSettings exposes the current speech credentials.
type SpeechSettings interface {
	Speech() models.SpeechSettings
}

// Submitter schedules background work.
type Submitter interface {
	Submit(name string, job enrich.Job) error
}

type Deps struct {
	KV       store.KeyValue
	Enricher TextEnricher
	Speaker  Speaker
	Speech   SpeechSettings
	Jobs     Submitter
	Log      *slog.Logger

	// AudioCacheCost bounds the in-memory front of the audio cache, in bytes.
	AudioCacheCost int64
	Now            func() time.Time
}

type Reconciler struct {
	items       *state.Container[[]models.StudyItem]
	expressions *state.Container[[]models.ExpressionItem]
	ipa         *state.Container[map[string]string]
	audio       *audioCache

	enricher TextEnricher
	speaker  Speaker
	speech   SpeechSettings
	jobs     Submitter
	log      *slog.Logger

	merges chan merge
	now    func() time.Time

	idMu   sync.Mutex
	lastID int64
}

// New hydrates the study lab, the glossary and the IPA cache from deps.KV.
// Values that cannot be read start empty; the joined PersistErrors are
// returned together with a usable Reconciler.
func New(ctx context.Context, deps Deps) (*Reconciler, error) {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.AudioCacheCost <= 0 {
		deps.AudioCacheCost = 64 << 20
	}

	front, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 10_000,
		MaxCost:     deps.AudioCacheCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create audio cache: %w", err)
	}

	items, itemsErr := state.Hydrate(ctx, deps.KV, StudyItemsKey, []models.StudyItem{})
	exprs, exprsErr := state.Hydrate(ctx, deps.KV, ExpressionsKey, []models.ExpressionItem{})
	ipa, ipaErr := state.Hydrate(ctx, deps.KV, IPACacheKey, map[string]string{})

	r := &Reconciler{
		items:       items,
		expressions: exprs,
		ipa:         ipa,
		audio:       &audioCache{kv: deps.KV, front: front},
		enricher:    deps.Enricher,
		speaker:     deps.Speaker,
		speech:      deps.Speech,
		jobs:        deps.Jobs,
		log:         deps.Log,
		merges:      make(chan merge, 64),
		now:         deps.Now,
	}
	return r, errors.Join(itemsErr, exprsErr, ipaErr)
}

// Close releases the audio cache.
func (r *Reconciler) Close() {
	r.audio.front.Close()
}

// normalize is the identity used for duplicate detection and cache keys.
func normalize(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

// nextID returns a millisecond timestamp that is strictly greater than any
// previously issued one.
func (r *Reconciler) nextID() int64 {
	r.idMu.Lock()
	defer r.idMu.Unlock()
	id := r.now().UnixMilli()
	if id <= r.lastID {
		id = r.lastID + 1
	}
	r.lastID = id
	return id
}

func notFound(kind, id string) error {
	return serr.New(ErrItemNotFound, http.StatusNotFound, "%s %q not found", kind, id).With("id", id)
}

func invalid(format string, args ...any) error {
	return serr.New(ErrInvalidArgument, http.StatusBadRequest, format, args...)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func indexByID[T any](items []T, id string, idOf func(T) string) int {
	return slices.IndexFunc(items, func(it T) bool { return idOf(it) == id })
}
