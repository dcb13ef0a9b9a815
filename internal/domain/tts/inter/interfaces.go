// Package inter declares the contracts between the model manager, the
// engine runtimes and the HTTP layer.
package inter

import "context"

// SynthesizeRequest carries one synthesis job into an engine.
type SynthesizeRequest struct {
	// Text to render. Already validated for length by the caller.
	Text string
	// LanguageID selects the output language on multilingual engines.
	// Empty means the engine default.
	LanguageID string
	// VoicePath points at a reference WAV on local disk for voice
	// cloning. Empty means the engine's built-in voice.
	VoicePath string
}

// SynthesizeResult is the audio produced for one request.
type SynthesizeResult struct {
	// Audio is a complete WAV stream.
	Audio []byte
	// SampleRate of the audio, as reported by the engine.
	SampleRate int
}

// Engine is one loaded model variant ready to synthesize.
type Engine interface {
	// Generate renders text to audio. Safe for concurrent use.
	Generate(ctx context.Context, req SynthesizeRequest) (*SynthesizeResult, error)
	// SampleRate reports the engine's native output rate.
	SampleRate() int
	// Close releases the underlying runtime. Generate must not be
	// called after Close.
	Close() error
}

// EngineFactory creates an engine for a model variant. Load is expected
// to be slow; callers serialize it per variant.
type EngineFactory interface {
	Load(ctx context.Context, variant string, device string) (Engine, error)
}
