package study

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/kevinaaaquil/lexireader/serr"
	"github.com/kevinaaaquil/lexireader/store"
)

const audioMIMEType = "audio/mpeg"

// AudioKey identifies a cached pronunciation clip. Term is normalized.
type AudioKey struct {
	BookID string
	Term   string
}

// String renders the key in the stored "<bookId>::<term>" form.
func (k AudioKey) String() string {
	return k.BookID + "::" + k.Term
}

// audioCache keeps clips as data URLs, one KV entry per clip, with an
// in-memory cache in front.
type audioCache struct {
	kv    store.KeyValue
	front *ristretto.Cache[string, string]
}

func (c *audioCache) storageKey(k AudioKey) string {
	return AudioCacheKey + "/" + k.String()
}

func (c *audioCache) get(ctx context.Context, k AudioKey) (string, bool, error) {
	if v, ok := c.front.Get(k.String()); ok {
		return v, true, nil
	}
	raw, err := c.kv.Get(ctx, c.storageKey(k))
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	v := string(raw)
	c.front.Set(k.String(), v, int64(len(v)))
	return v, true, nil
}

func (c *audioCache) put(ctx context.Context, k AudioKey, dataURL string) error {
	c.front.Set(k.String(), dataURL, int64(len(dataURL)))
	return c.kv.Set(ctx, c.storageKey(k), []byte(dataURL))
}

// Audio returns the pronunciation clip of term as a data URL, synthesizing and
// caching it on a miss.
func (r *Reconciler) Audio(ctx context.Context, bookID, term string) (string, error) {
	key := AudioKey{BookID: bookID, Term: normalize(term)}
	if key.Term == "" {
		return "", invalid("term is required")
	}
	if v, ok, err := r.audio.get(ctx, key); err != nil {
		r.log.Warn("audio cache read failed", "key", key.String(), "error", err)
	} else if ok {
		return v, nil
	}
	if r.speaker == nil || r.speech == nil || !r.speech.Speech().Configured() {
		return "", serr.New(ErrSpeechDisabled, http.StatusPreconditionFailed, "add a speech API key and voice in settings first")
	}
	return r.synthesize(ctx, key, strings.TrimSpace(term))
}

func (r *Reconciler) synthesize(ctx context.Context, key AudioKey, text string) (string, error) {
	s := r.speech.Speech()
	clip, err := r.speaker.Synthesize(ctx, s.APIKey, text, s.VoiceID)
	if err != nil {
		return "", fmt.Errorf("synthesize %q: %w", text, err)
	}
	dataURL := "data:" + audioMIMEType + ";base64," + base64.StdEncoding.EncodeToString(clip)
	if err := r.audio.put(ctx, key, dataURL); err != nil {
		r.log.Warn("audio cache write failed", "key", key.String(), "error", err)
	}
	return dataURL, nil
}

// LookupIPA returns the transcription of term, preferring the matching study
// item, then the IPA cache, then the enricher.
func (r *Reconciler) LookupIPA(ctx context.Context, bookID, term string) (string, error) {
	key := normalize(term)
	if key == "" {
		return "", invalid("term is required")
	}
	for _, it := range r.items.Get() {
		if it.BookID == bookID && normalize(it.OriginalText) == key && it.IPA != "" {
			return it.IPA, nil
		}
	}
	if v, ok := r.ipa.Get()[key]; ok && v != "" {
		return v, nil
	}
	if r.enricher == nil {
		return "", serr.New(nil, http.StatusServiceUnavailable, "text enrichment is not configured")
	}

	ipa, err := r.enricher.IPA(ctx, strings.TrimSpace(term))
	if err != nil {
		return "", fmt.Errorf("lookup ipa: %w", err)
	}
	if _, err := r.ipa.Update(ctx, func(cur map[string]string) (map[string]string, error) {
		next := maps.Clone(cur)
		if next == nil {
			next = map[string]string{}
		}
		next[key] = ipa
		return next, nil
	}); err != nil {
		r.log.Warn("ipa cache write failed", "term", key, "error", err)
	}
	return ipa, nil
}
