// Package settings stores the reader preferences, the speech credentials and
// the ideas notebook.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/kevinaaaquil/lexireader/models"
	"github.com/kevinaaaquil/lexireader/serr"
	"github.com/kevinaaaquil/lexireader/state"
	"github.com/kevinaaaquil/lexireader/store"
	"github.com/kevinaaaquil/lexireader/utils"
)

const (
	AppKey    = "minimal-reader-settings-v5"
	SpeechKey = "minimal-reader-elevenlabs-v1"
	IdeasKey  = "minimal-reader-ideas-v1"
)

// DefaultVoiceID is used until the user picks a voice.
const DefaultVoiceID = "pMsXgVXv3BLzUgSXRplE"

// VoiceLister lists the voices available to an API key.
type VoiceLister interface {
	ListVoices(ctx context.Context, apiKey string) ([]models.Voice, error)
}

type Service struct {
	app    *state.Container[models.AppSettings]
	sealed *state.Container[models.SpeechSettings]
	ideas  *state.Container[[]string]

	sealer *utils.Sealer
	voices VoiceLister
	log    *slog.Logger

	mu     sync.RWMutex
	speech models.SpeechSettings
}

// Load hydrates every setting from kv. Unreadable values fall back to their
// defaults and the joined PersistErrors are returned with the Service.
func Load(ctx context.Context, kv store.KeyValue, sealer *utils.Sealer, voices VoiceLister, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	app, appErr := state.Hydrate(ctx, kv, AppKey, models.DefaultAppSettings())
	sealed, speechErr := state.Hydrate(ctx, kv, SpeechKey, models.SpeechSettings{VoiceID: DefaultVoiceID})
	ideas, ideasErr := state.Hydrate(ctx, kv, IdeasKey, []string{})

	s := &Service{app: app, sealed: sealed, ideas: ideas, sealer: sealer, voices: voices, log: log}
	s.speech = sealed.Get()
	key, err := sealer.Open(s.speech.APIKey)
	if err != nil {
		log.Warn("cannot decrypt stored speech api key, clearing it", "error", err)
		key = ""
	}
	s.speech.APIKey = key
	return s, errors.Join(appErr, speechErr, ideasErr)
}

func (s *Service) App() models.AppSettings {
	return s.app.Get()
}

func (s *Service) SaveApp(ctx context.Context, a models.AppSettings) (models.AppSettings, error) {
	if a.AppTheme != "light" && a.AppTheme != "dark" {
		return models.AppSettings{}, serr.New(nil, http.StatusBadRequest, "appTheme must be light or dark")
	}
	if a.CustomReaderBgBlur < 0 || a.CustomReaderBgOpacity < 0 || a.CustomReaderBgOpacity > 1 || a.CustomCursorSize <= 0 {
		return models.AppSettings{}, serr.New(nil, http.StatusBadRequest, "reader background and cursor values are out of range")
	}
	return s.app.Update(ctx, func(models.AppSettings) (models.AppSettings, error) { return a, nil })
}

// Speech returns the speech credentials with the API key in the clear.
func (s *Service) Speech() models.SpeechSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.speech
}

// SaveSpeech stores new credentials and, when the key changed, checks the
// voice against the voices the new key can use.
func (s *Service) SaveSpeech(ctx context.Context, in models.SpeechSettings) (models.SpeechSettings, error) {
	in.APIKey = strings.TrimSpace(in.APIKey)
	in.VoiceID = strings.TrimSpace(in.VoiceID)
	prev := s.Speech()
	if err := s.storeSpeech(ctx, in); err != nil {
		if !state.IsPersistError(err) {
			return models.SpeechSettings{}, err
		}
		return in, err
	}
	if in.APIKey != prev.APIKey {
		return s.ValidateVoice(ctx)
	}
	return in, nil
}

func (s *Service) storeSpeech(ctx context.Context, in models.SpeechSettings) error {
	sealedKey, err := s.sealer.Seal(in.APIKey)
	if err != nil {
		return fmt.Errorf("encrypt api key: %w", err)
	}
	s.mu.Lock()
	s.speech = in
	s.mu.Unlock()

	stored := in
	stored.APIKey = sealedKey
	return s.sealed.Set(ctx, stored)
}

// Voices lists the voices of the configured key. Without a key the list is empty.
func (s *Service) Voices(ctx context.Context) ([]models.Voice, error) {
	cur := s.Speech()
	if cur.APIKey == "" || s.voices == nil {
		return []models.Voice{}, nil
	}
	voices, err := s.voices.ListVoices(ctx, cur.APIKey)
	if err != nil {
		return nil, serr.New(err, http.StatusBadGateway, "could not load voices")
	}
	return voices, nil
}

// ValidateVoice makes sure the selected voice exists for the configured key.
// An unknown voice is replaced with the first available one; when no voice can
// be listed the selection is cleared.
func (s *Service) ValidateVoice(ctx context.Context) (models.SpeechSettings, error) {
	cur := s.Speech()
	if cur.APIKey == "" || s.voices == nil {
		return cur, nil
	}

	voices, err := s.voices.ListVoices(ctx, cur.APIKey)
	next := cur
	switch {
	case err != nil:
		s.log.Warn("failed to list voices, clearing voice selection", "error", err)
		next.VoiceID = ""
	case len(voices) == 0:
		s.log.Warn("no voices available for the speech api key")
		next.VoiceID = ""
	case !slices.ContainsFunc(voices, func(v models.Voice) bool { return v.VoiceID == cur.VoiceID }):
		s.log.Info("selected voice is unavailable, switching", "from", cur.VoiceID, "to", voices[0].VoiceID)
		next.VoiceID = voices[0].VoiceID
	}
	if next == cur {
		return cur, nil
	}
	return next, s.storeSpeech(ctx, next)
}

func (s *Service) Ideas() []string {
	return s.ideas.Get()
}

// SaveIdeas replaces the notebook. Blank entries are dropped.
func (s *Service) SaveIdeas(ctx context.Context, ideas []string) ([]string, error) {
	clean := make([]string, 0, len(ideas))
	for _, idea := range ideas {
		if strings.TrimSpace(idea) != "" {
			clean = append(clean, idea)
		}
	}
	return s.ideas.Update(ctx, func([]string) ([]string, error) { return clean, nil })
}
