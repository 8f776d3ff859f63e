package ai

import "context"

// TextGenerator is the text-generation backend used by every enrichment stage.
// Output has no guaranteed schema; callers parse it best effort.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAgent  ProviderType = "agent"
	ProviderAuto   ProviderType = "auto"
)
