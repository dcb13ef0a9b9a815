// Package engine runs model variants in an external runtime process and
// exchanges synthesis jobs with it over line-delimited JSON on
// stdin/stdout. Audio crosses the boundary as temp file paths so the
// pipe only ever carries small control messages.
package engine

// readyMessage is the first line the runtime prints once the model is
// loaded and ready to accept requests.
type readyMessage struct {
	Ready      bool   `json:"ready"`
	SampleRate int    `json:"sample_rate"`
	Error      string `json:"error,omitempty"`
}

// request is one synthesis job sent to the runtime.
type request struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	LanguageID string `json:"language_id,omitempty"`
	VoicePath  string `json:"voice_path,omitempty"`
}

// response is the runtime's answer to one request. Exactly one of
// AudioPath and Error is set.
type response struct {
	ID         string `json:"id"`
	AudioPath  string `json:"audio_path,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Error      string `json:"error,omitempty"`
}
