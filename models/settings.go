package models

type AppSettings struct {
	AppTheme              string  `json:"appTheme"`
	ReaderTheme           string  `json:"readerTheme"`
	CustomReaderBgURL     string  `json:"customReaderBgUrl"`
	CustomReaderBgBlur    int     `json:"customReaderBgBlur"`
	CustomReaderBgOpacity float64 `json:"customReaderBgOpacity"`
	ShowClockInReader     bool    `json:"showClockInReader"`
	ShowCustomCursor      bool    `json:"showCustomCursor"`
	CustomCursorSize      int     `json:"customCursorSize"`
}

func DefaultAppSettings() AppSettings {
	return AppSettings{
		AppTheme:              "dark",
		ReaderTheme:           "dark",
		CustomReaderBgBlur:    4,
		CustomReaderBgOpacity: 0.5,
		ShowClockInReader:     true,
		ShowCustomCursor:      true,
		CustomCursorSize:      20,
	}
}

// SpeechSettings holds the text-to-speech credentials. APIKey may be stored
// encrypted ("enc:" prefix) at rest.
type SpeechSettings struct {
	APIKey  string `json:"apiKey"`
	VoiceID string `json:"voiceId"`
}

// Configured reports whether speech synthesis can be attempted.
func (s SpeechSettings) Configured() bool {
	return s.APIKey != "" && s.VoiceID != ""
}

type Voice struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}
