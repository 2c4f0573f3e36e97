package study

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/kevinaaaquil/lexireader/models"
	"github.com/kevinaaaquil/lexireader/serr"
	"github.com/kevinaaaquil/lexireader/state"
)

func expressionID(it models.ExpressionItem) string { return it.ID }

// GenerateExpressions asks the enricher for the expressions in lessonText (or
// the whole book when empty), keeps those that really occur in the text and
// replaces the glossary of the book's current lesson with them.
func (r *Reconciler) GenerateExpressions(ctx context.Context, book models.Book, lessonText string) ([]models.ExpressionItem, error) {
	if r.enricher == nil {
		return nil, serr.New(nil, http.StatusServiceUnavailable, "text enrichment is not configured")
	}
	text := lessonText
	if text == "" {
		text = book.Content
	}
	if strings.TrimSpace(text) == "" {
		return nil, invalid("there is no text to analyze")
	}

	candidates, err := r.enricher.GenerateExpressions(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("generate expressions: %w", err)
	}
	if len(candidates) == 0 {
		return nil, serr.New(ErrNoResult, http.StatusBadGateway, "the service returned no expressions")
	}

	haystack := strings.ToLower(text)
	now := r.nextID()
	fresh := make([]models.ExpressionItem, 0, len(candidates))
	for _, c := range candidates {
		expr := strings.TrimSpace(c.Expression)
		if expr == "" || !strings.Contains(haystack, strings.ToLower(expr)) {
			continue
		}
		fresh = append(fresh, models.ExpressionItem{
			ID:                       expressionKey(book.ID, book.CurrentLesson, expr, now+int64(len(fresh))),
			BookID:                   book.ID,
			Expression:               expr,
			Explanation:              c.Explanation,
			Context:                  c.Context,
			SimpleExample:            c.SimpleExample,
			SimpleExampleTranslation: c.SimpleExampleTranslation,
			LessonNumber:             book.CurrentLesson,
			CreatedAt:                now,
		})
	}
	if len(fresh) == 0 {
		return nil, serr.New(ErrNothingFound, http.StatusUnprocessableEntity, "no relevant expressions were found in this text")
	}

	_, err = r.expressions.Update(ctx, func(cur []models.ExpressionItem) ([]models.ExpressionItem, error) {
		next := make([]models.ExpressionItem, 0, len(cur)+len(fresh))
		for _, e := range cur {
			if e.BookID == book.ID && e.LessonNumber == book.CurrentLesson {
				continue
			}
			next = append(next, e)
		}
		return append(next, fresh...), nil
	})
	return fresh, err
}

// expressionKey builds "<book>-<lesson>-<expression with dashes>-<stamp>".
func expressionKey(bookID string, lesson int, expr string, stamp int64) string {
	slug := strings.Join(strings.Fields(normalize(expr)), "-")
	return fmt.Sprintf("%s-%d-%s-%d", bookID, lesson, slug, stamp)
}

// Expressions lists glossary entries for bookID. A lesson of 0 matches every
// lesson; an empty bookID matches every book.
func (r *Reconciler) Expressions(bookID string, lesson int) []models.ExpressionItem {
	all := r.expressions.Get()
	out := make([]models.ExpressionItem, 0, len(all))
	for _, e := range all {
		if bookID != "" && e.BookID != bookID {
			continue
		}
		if lesson > 0 && e.LessonNumber != lesson {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (r *Reconciler) UpdateExpression(ctx context.Context, item models.ExpressionItem) (models.ExpressionItem, error) {
	var updated models.ExpressionItem
	_, err := r.expressions.Update(ctx, func(cur []models.ExpressionItem) ([]models.ExpressionItem, error) {
		i := indexByID(cur, item.ID, expressionID)
		if i < 0 {
			return nil, notFound("expression", item.ID)
		}
		next := slices.Clone(cur)
		existing := &next[i]
		if expr := strings.TrimSpace(item.Expression); expr != "" {
			existing.Expression = expr
		}
		existing.Explanation = item.Explanation
		existing.Context = item.Context
		existing.SimpleExample = item.SimpleExample
		existing.SimpleExampleTranslation = item.SimpleExampleTranslation
		existing.IPA = item.IPA
		updated = *existing
		return next, nil
	})
	if err != nil && !state.IsPersistError(err) {
		return models.ExpressionItem{}, err
	}
	return updated, err
}

func (r *Reconciler) DeleteExpression(ctx context.Context, id string) error {
	_, err := r.expressions.Update(ctx, func(cur []models.ExpressionItem) ([]models.ExpressionItem, error) {
		i := indexByID(cur, id, expressionID)
		if i < 0 {
			return nil, notFound("expression", id)
		}
		return slices.Delete(slices.Clone(cur), i, i+1), nil
	})
	return err
}
