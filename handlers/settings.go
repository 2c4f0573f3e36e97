package handlers

import (
	"net/http"

	"github.com/kevinaaaquil/lexireader/models"
	"github.com/kevinaaaquil/lexireader/settings"
)

type SettingsHandler struct {
	Settings *settings.Service
}

// speechView never echoes the API key back.
type speechView struct {
	Configured bool   `json:"configured"`
	HasAPIKey  bool   `json:"hasApiKey"`
	VoiceID    string `json:"voiceId"`
}

type ideasBody struct {
	Ideas []string `json:"ideas"`
}

func toSpeechView(s models.SpeechSettings) speechView {
	return speechView{Configured: s.Configured(), HasAPIKey: s.APIKey != "", VoiceID: s.VoiceID}
}

func (h *SettingsHandler) GetApp(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Settings.App())
}

func (h *SettingsHandler) SaveApp(w http.ResponseWriter, r *http.Request) {
	var in models.AppSettings
	if err := readJSON(r, &in); err != nil {
		handleErr(w, r, err)
		return
	}
	saved, err := h.Settings.SaveApp(r.Context(), in)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *SettingsHandler) GetSpeech(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSpeechView(h.Settings.Speech()))
}

// SaveSpeech replaces the credentials. An omitted apiKey keeps the stored one.
func (h *SettingsHandler) SaveSpeech(w http.ResponseWriter, r *http.Request) {
	var in struct {
		APIKey  *string `json:"apiKey"`
		VoiceID string  `json:"voiceId"`
	}
	if err := readJSON(r, &in); err != nil {
		handleErr(w, r, err)
		return
	}
	next := models.SpeechSettings{APIKey: h.Settings.Speech().APIKey, VoiceID: in.VoiceID}
	if in.APIKey != nil {
		next.APIKey = *in.APIKey
	}
	saved, err := h.Settings.SaveSpeech(r.Context(), next)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSpeechView(saved))
}

func (h *SettingsHandler) Voices(w http.ResponseWriter, r *http.Request) {
	voices, err := h.Settings.Voices(r.Context())
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, voices)
}

func (h *SettingsHandler) GetIdeas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ideasBody{Ideas: h.Settings.Ideas()})
}

func (h *SettingsHandler) SaveIdeas(w http.ResponseWriter, r *http.Request) {
	var in ideasBody
	if err := readJSON(r, &in); err != nil {
		handleErr(w, r, err)
		return
	}
	saved, err := h.Settings.SaveIdeas(r.Context(), in.Ideas)
	if err != nil {
		handleErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ideasBody{Ideas: saved})
}
