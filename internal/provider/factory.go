package provider

import (
	"time"

	"go.uber.org/zap"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// Credentials carries the backend API configuration loaded at startup.
type Credentials struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string
	XAIAPIKey       string
	DeepSeekAPIKey  string
	OllamaURL       string
}

// New builds the decision backend for a model spec. Unknown or empty
// provider names fall back to the weighted-random provider; this routing
// happens once here, never inside the execution path.
func New(spec model.ModelSpec, creds Credentials, logger *zap.Logger) DecisionProvider {
	switch spec.Provider {
	case "openai":
		return NewOpenAIProvider("openai", creds.OpenAIAPIKey, spec.ModelID, spec.BaseURL)
	case "xai":
		return NewOpenAIProvider("xai", creds.XAIAPIKey, spec.ModelID, "https://api.x.ai/v1")
	case "deepseek":
		return NewOpenAIProvider("deepseek", creds.DeepSeekAPIKey, spec.ModelID, "https://api.deepseek.com")
	case "custom":
		return NewOpenAIProvider("custom", creds.OpenAIAPIKey, spec.ModelID, spec.BaseURL)
	case "anthropic":
		return NewAnthropicProvider(creds.AnthropicAPIKey, spec.ModelID)
	case "google":
		return NewGeminiProvider(creds.GoogleAPIKey, spec.ModelID)
	case "ollama":
		baseURL := spec.BaseURL
		if baseURL == "" {
			baseURL = creds.OllamaURL
		}
		return NewOllamaProvider(baseURL, spec.ModelID)
	case "technical":
		return NewTechnicalProvider(7, 21)
	default:
		if spec.Provider != "" {
			logger.Warn("unknown provider, falling back to random",
				zap.String("model", spec.ID),
				zap.String("provider", spec.Provider),
			)
		}
		return NewRandomProvider(time.Now().UnixNano())
	}
}
