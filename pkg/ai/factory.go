package ai

import (
	"fmt"
	"time"

	"github.com/Alok-Gaur/mail-management-agent/pkg/gemini"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini", "ollama", "agent" or "auto"

	// Gemini config
	GeminiAPIKey string

	// Agent config
	AgentURL   string
	AgentModel string

	// Ollama config; getters let the settings endpoint change them at runtime
	GetOllamaBaseURL func() string
	GetOllamaModel   func() string

	// Timeout bounds each HTTP call to a provider; zero means no limit
	Timeout time.Duration
}

type namedGenerator struct {
	name string
	gen  TextGenerator
}

// NewTextGenerator creates a TextGenerator based on the config.
// "auto" chains every configured provider in the order agent, gemini, ollama.
func NewTextGenerator(cfg Config) (TextGenerator, error) {
	ollama := func() TextGenerator {
		baseURL, model := cfg.GetOllamaBaseURL, cfg.GetOllamaModel
		if baseURL == nil {
			baseURL = func() string { return "http://localhost:11434" }
		}
		if model == nil {
			model = func() string { return "llama3" }
		}
		o := NewOllamaServiceWithGetters(baseURL, model)
		o.client.Timeout = cfg.Timeout
		return o
	}
	agent := func() TextGenerator {
		a := NewAgentService(cfg.AgentURL, cfg.AgentModel)
		a.client.Timeout = cfg.Timeout
		return a
	}
	geminiSvc := func() TextGenerator {
		return gemini.NewGeminiService(cfg.GeminiAPIKey).WithTimeout(cfg.Timeout)
	}

	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return geminiSvc(), nil

	case ProviderOllama:
		return ollama(), nil

	case ProviderAgent:
		if cfg.AgentURL == "" {
			return nil, fmt.Errorf("AGENT_URL is required for agent provider")
		}
		return agent(), nil

	case ProviderAuto, "":
		var chain []namedGenerator
		if cfg.AgentURL != "" {
			chain = append(chain, namedGenerator{"agent", agent()})
		}
		if cfg.GeminiAPIKey != "" {
			chain = append(chain, namedGenerator{"gemini", geminiSvc()})
		}
		chain = append(chain, namedGenerator{"ollama", ollama()})
		return buildChain(chain), nil

	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

func buildChain(chain []namedGenerator) TextGenerator {
	last := chain[len(chain)-1]
	gen, name := last.gen, last.name
	for i := len(chain) - 2; i >= 0; i-- {
		gen = NewFallbackService(chain[i].name, chain[i].gen, name, gen)
		name = chain[i].name + "+" + name
	}
	return gen
}

