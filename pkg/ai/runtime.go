package ai

import "sync"

// RuntimeSettings holds the Ollama endpoint, which operators can change while
// the service runs. Generators built with its getters see updates immediately.
type RuntimeSettings struct {
	mu            sync.RWMutex
	ollamaBaseURL string
	ollamaModel   string
}

func NewRuntimeSettings(ollamaBaseURL, ollamaModel string) *RuntimeSettings {
	return &RuntimeSettings{ollamaBaseURL: ollamaBaseURL, ollamaModel: ollamaModel}
}

func (r *RuntimeSettings) OllamaBaseURL() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ollamaBaseURL
}

func (r *RuntimeSettings) OllamaModel() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ollamaModel
}

// Update sets the base URL. An empty model keeps the current one.
func (r *RuntimeSettings) Update(baseURL, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ollamaBaseURL = baseURL
	if model != "" {
		r.ollamaModel = model
	}
}

// Pinger returns an Ollama client bound to these settings, for connectivity checks.
func (r *RuntimeSettings) Pinger() *OllamaService {
	return NewOllamaServiceWithGetters(r.OllamaBaseURL, r.OllamaModel)
}
