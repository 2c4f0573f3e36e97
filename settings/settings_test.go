package settings

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kevinaaaquil/lexireader/models"
	"github.com/kevinaaaquil/lexireader/store"
	"github.com/kevinaaaquil/lexireader/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVoices struct {
	voices []models.Voice
	err    error
	calls  int
}

func (f *fakeVoices) ListVoices(_ context.Context, apiKey string) ([]models.Voice, error) {
	f.calls++
	return f.voices, f.err
}

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func load(t *testing.T, kv store.KeyValue, voices VoiceLister) *Service {
	t.Helper()
	sealer, err := utils.NewSealer(testKey)
	require.NoError(t, err)
	s, err := Load(context.Background(), kv, sealer, voices, nil)
	require.NoError(t, err)
	return s
}

func TestDefaults(t *testing.T) {
	s := load(t, store.NewMemoryKV(), nil)
	assert.Equal(t, models.DefaultAppSettings(), s.App())
	assert.Equal(t, DefaultVoiceID, s.Speech().VoiceID)
	assert.Empty(t, s.Speech().APIKey)
	assert.Empty(t, s.Ideas())
}

func TestSpeechKeyIsEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	voices := &fakeVoices{voices: []models.Voice{{VoiceID: "v1", Name: "Rachel"}}}
	s := load(t, kv, voices)

	got, err := s.SaveSpeech(ctx, models.SpeechSettings{APIKey: " sk_123 ", VoiceID: "v1"})
	require.NoError(t, err)
	assert.Equal(t, "sk_123", got.APIKey)
	assert.Equal(t, 1, voices.calls)

	raw, err := kv.Get(ctx, SpeechKey)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk_123")
	assert.Contains(t, string(raw), "enc:")

	reloaded := load(t, kv, voices)
	assert.Equal(t, models.SpeechSettings{APIKey: "sk_123", VoiceID: "v1"}, reloaded.Speech())
}

func TestValidateVoice(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown voice switches to first", func(t *testing.T) {
		voices := &fakeVoices{voices: []models.Voice{{VoiceID: "a"}, {VoiceID: "b"}}}
		s := load(t, store.NewMemoryKV(), voices)
		got, err := s.SaveSpeech(ctx, models.SpeechSettings{APIKey: "k", VoiceID: "gone"})
		require.NoError(t, err)
		assert.Equal(t, "a", got.VoiceID)
		assert.Equal(t, "a", s.Speech().VoiceID)
	})

	t.Run("known voice is kept", func(t *testing.T) {
		voices := &fakeVoices{voices: []models.Voice{{VoiceID: "a"}, {VoiceID: "b"}}}
		s := load(t, store.NewMemoryKV(), voices)
		got, err := s.SaveSpeech(ctx, models.SpeechSettings{APIKey: "k", VoiceID: "b"})
		require.NoError(t, err)
		assert.Equal(t, "b", got.VoiceID)
	})

	t.Run("no voices clears selection", func(t *testing.T) {
		s := load(t, store.NewMemoryKV(), &fakeVoices{})
		got, err := s.SaveSpeech(ctx, models.SpeechSettings{APIKey: "k", VoiceID: "b"})
		require.NoError(t, err)
		assert.Empty(t, got.VoiceID)
	})

	t.Run("listing error clears selection", func(t *testing.T) {
		s := load(t, store.NewMemoryKV(), &fakeVoices{err: errors.New("401")})
		got, err := s.SaveSpeech(ctx, models.SpeechSettings{APIKey: "k", VoiceID: "b"})
		require.NoError(t, err)
		assert.Empty(t, got.VoiceID)
		assert.False(t, s.Speech().Configured())
	})

	t.Run("no key skips the check", func(t *testing.T) {
		voices := &fakeVoices{}
		s := load(t, store.NewMemoryKV(), voices)
		got, err := s.ValidateVoice(ctx)
		require.NoError(t, err)
		assert.Equal(t, DefaultVoiceID, got.VoiceID)
		assert.Zero(t, voices.calls)
	})

	t.Run("same key does not relist", func(t *testing.T) {
		voices := &fakeVoices{voices: []models.Voice{{VoiceID: "a"}}}
		s := load(t, store.NewMemoryKV(), voices)
		_, err := s.SaveSpeech(ctx, models.SpeechSettings{APIKey: "k", VoiceID: "a"})
		require.NoError(t, err)
		_, err = s.SaveSpeech(ctx, models.SpeechSettings{APIKey: "k", VoiceID: "a"})
		require.NoError(t, err)
		assert.Equal(t, 1, voices.calls)
	})
}

func TestSaveAppValidates(t *testing.T) {
	s := load(t, store.NewMemoryKV(), nil)
	a := models.DefaultAppSettings()
	a.AppTheme = "sepia"
	_, err := s.SaveApp(context.Background(), a)
	require.Error(t, err)

	a = models.DefaultAppSettings()
	a.ReaderTheme = "paper"
	got, err := s.SaveApp(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "paper", got.ReaderTheme)
	assert.Equal(t, "paper", s.App().ReaderTheme)
}

func TestIdeas(t *testing.T) {
	kv := store.NewMemoryKV()
	s := load(t, kv, nil)
	got, err := s.SaveIdeas(context.Background(), []string{"read more news", "  ", "shadowing practice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"read more news", "shadowing practice"}, got)

	raw, err := kv.Get(context.Background(), IdeasKey)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "shadowing practice"))
}

func TestUnreadableEncryptedKeyIsCleared(t *testing.T) {
	kv := store.NewMemoryKV()
	require.NoError(t, kv.Set(context.Background(), SpeechKey, []byte(`{"apiKey":"enc:garbage","voiceId":"v1"}`)))
	s := load(t, kv, nil)
	assert.Empty(t, s.Speech().APIKey)
	assert.Equal(t, "v1", s.Speech().VoiceID)
}
