package tts

// SynthesisRequest is the JSON body accepted by the /tts endpoint.
type SynthesisRequest struct {
	Text       string `json:"text" binding:"required"`
	ModelType  string `json:"model_type"`
	LanguageID string `json:"language_id"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status       string   `json:"status"`
	Device       string   `json:"device"`
	LoadedModels []string `json:"loaded_models"`
	Host         any      `json:"host,omitempty"`
	Cache        any      `json:"cache,omitempty"`
}
