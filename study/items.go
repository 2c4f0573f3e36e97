package study

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/kevinaaaquil/lexireader/models"
	"github.com/kevinaaaquil/lexireader/serr"
	"github.com/kevinaaaquil/lexireader/state"
)

// Candidate is a term the reader highlighted.
type Candidate struct {
	BookID       string `json:"bookId"`
	OriginalText string `json:"originalText"`
	Color        string `json:"color"`
	Context      string `json:"context"`
	PageNumber   int    `json:"pageNumber"`
}

// merge is a background result addressed to one study item.
type merge struct {
	id    string
	apply func(*models.StudyItem)
}

var errGone = errors.New("study item no longer exists")

func studyItemID(it models.StudyItem) string { return it.ID }

// AddStudyItem stores a new study item at the top of the lab and schedules its
// enrichment. The returned item has empty explanation, examples and IPA.
func (r *Reconciler) AddStudyItem(ctx context.Context, c Candidate) (models.StudyItem, error) {
	if strings.TrimSpace(c.BookID) == "" || strings.TrimSpace(c.OriginalText) == "" {
		return models.StudyItem{}, invalid("bookId and originalText are required")
	}
	key := normalize(c.OriginalText)

	var added models.StudyItem
	_, err := r.items.Update(ctx, func(cur []models.StudyItem) ([]models.StudyItem, error) {
		for _, it := range cur {
			if it.BookID == c.BookID && normalize(it.OriginalText) == key {
				return nil, serr.New(ErrDuplicate, http.StatusConflict, "%q is already in your study lab", strings.TrimSpace(c.OriginalText)).
					With("book_id", c.BookID)
			}
		}
		id := r.nextID()
		added = models.StudyItem{
			ID:           formatID(id),
			BookID:       c.BookID,
			OriginalText: c.OriginalText,
			Color:        c.Color,
			Context:      c.Context,
			PageNumber:   c.PageNumber,
			CreatedAt:    id,
		}
		next := make([]models.StudyItem, 0, len(cur)+1)
		next = append(next, added)
		return append(next, cur...), nil
	})
	if err != nil && !state.IsPersistError(err) {
		return models.StudyItem{}, err
	}

	r.scheduleCard(added)
	r.scheduleSpeech(added)
	return added, err
}

func (r *Reconciler) scheduleCard(item models.StudyItem) {
	if r.enricher == nil || r.jobs == nil {
		return
	}
	_ = r.jobs.Submit("study-card:"+item.ID, func(ctx context.Context) error {
		card, err := r.enricher.StudyCardData(ctx, item.OriginalText, item.Context)
		if err != nil {
			return err
		}
		return r.send(ctx, merge{id: item.ID, apply: func(it *models.StudyItem) {
			mergeCard(it, card)
		}})
	})
}

func (r *Reconciler) scheduleSpeech(item models.StudyItem) {
	if r.speaker == nil || r.speech == nil || r.jobs == nil || !r.speech.Speech().Configured() {
		return
	}
	key := AudioKey{BookID: item.BookID, Term: normalize(item.OriginalText)}
	_ = r.jobs.Submit("speech:"+item.ID, func(ctx context.Context) error {
		_, err := r.synthesize(ctx, key, item.OriginalText)
		return err
	})
}

// mergeCard fills the enrichment fields that are still empty. Values the user
// set while the card was generating are kept.
func mergeCard(it *models.StudyItem, card models.StudyCard) {
	fill(&it.Explanation, card.Explanation)
	fill(&it.ExampleSentence, card.ExampleSentence)
	fill(&it.ExampleTranslation, card.ExampleTranslation)
	fill(&it.IPA, card.IPA)
}

func fill(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func (r *Reconciler) send(ctx context.Context, m merge) error {
	select {
	case r.merges <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies background results until ctx is done. A result for an item that
// was deleted in the meantime is discarded.
func (r *Reconciler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-r.merges:
			r.applyMerge(ctx, m)
		}
	}
}

func (r *Reconciler) applyMerge(ctx context.Context, m merge) {
	_, err := r.items.Update(ctx, func(cur []models.StudyItem) ([]models.StudyItem, error) {
		i := indexByID(cur, m.id, studyItemID)
		if i < 0 {
			return nil, errGone
		}
		next := slices.Clone(cur)
		m.apply(&next[i])
		return next, nil
	})
	switch {
	case errors.Is(err, errGone):
		r.log.Debug("discarding enrichment for removed study item", "id", m.id)
	case err != nil:
		r.log.Error("failed to save enrichment", "id", m.id, "error", err)
	}
}

// StudyItems lists items for bookID, most recent first. An empty bookID lists
// every book.
func (r *Reconciler) StudyItems(bookID string) []models.StudyItem {
	all := r.items.Get()
	out := make([]models.StudyItem, 0, len(all))
	for _, it := range all {
		if bookID == "" || it.BookID == bookID {
			out = append(out, it)
		}
	}
	return out
}

// UpdateStudyItem overwrites the editable fields of the item with the same id.
func (r *Reconciler) UpdateStudyItem(ctx context.Context, item models.StudyItem) (models.StudyItem, error) {
	var updated models.StudyItem
	_, err := r.items.Update(ctx, func(cur []models.StudyItem) ([]models.StudyItem, error) {
		i := indexByID(cur, item.ID, studyItemID)
		if i < 0 {
			return nil, notFound("study item", item.ID)
		}
		next := slices.Clone(cur)
		existing := &next[i]
		if strings.TrimSpace(item.OriginalText) != "" {
			if key := normalize(item.OriginalText); key != normalize(existing.OriginalText) {
				for j, it := range cur {
					if j != i && it.BookID == existing.BookID && normalize(it.OriginalText) == key {
						return nil, serr.New(ErrDuplicate, http.StatusConflict,
							"%q is already in your study lab", strings.TrimSpace(item.OriginalText)).
							With("book_id", existing.BookID)
					}
				}
			}
			existing.OriginalText = item.OriginalText
		}
		existing.Color = item.Color
		existing.Context = item.Context
		existing.PageNumber = item.PageNumber
		existing.Explanation = item.Explanation
		existing.ExampleSentence = item.ExampleSentence
		existing.ExampleTranslation = item.ExampleTranslation
		existing.IPA = item.IPA
		updated = *existing
		return next, nil
	})
	if err != nil && !state.IsPersistError(err) {
		return models.StudyItem{}, err
	}
	return updated, err
}

func (r *Reconciler) DeleteStudyItem(ctx context.Context, id string) error {
	_, err := r.items.Update(ctx, func(cur []models.StudyItem) ([]models.StudyItem, error) {
		i := indexByID(cur, id, studyItemID)
		if i < 0 {
			return nil, notFound("study item", id)
		}
		return slices.Delete(slices.Clone(cur), i, i+1), nil
	})
	return err
}
