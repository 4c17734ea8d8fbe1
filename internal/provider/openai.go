package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// OpenAIProvider speaks the OpenAI chat-completions wire format. xAI,
// DeepSeek and self-hosted compatible endpoints reuse it with a different
// base URL.
type OpenAIProvider struct {
	name    string
	apiKey  string
	modelID string
	baseURL string
	client  *http.Client
}

func NewOpenAIProvider(name, apiKey, modelID, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		name:    name,
		apiKey:  apiKey,
		modelID: modelID,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Decide(ctx context.Context, req Request) (model.TradeDecision, error) {
	if p.apiKey == "" {
		return model.TradeDecision{}, fmt.Errorf("%s: api key not configured", p.name)
	}

	body, err := json.Marshal(map[string]interface{}{
		"model": p.modelID,
		"messages": []map[string]string{
			{"role": "user", "content": buildPrompt(req)},
		},
		"temperature": 0.1,
		"max_tokens":  200,
		"stream":      false,
	})
	if err != nil {
		return model.TradeDecision{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return model.TradeDecision{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return model.TradeDecision{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.TradeDecision{}, fmt.Errorf("%s: status %d", p.name, resp.StatusCode)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.TradeDecision{}, fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	if len(out.Choices) == 0 {
		return model.TradeDecision{}, fmt.Errorf("%s: empty choices", p.name)
	}

	return parseDecision(out.Choices[0].Message.Content)
}
