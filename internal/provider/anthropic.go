package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// AnthropicProvider speaks the Anthropic messages API.
type AnthropicProvider struct {
	apiKey  string
	modelID string
	client  *http.Client
}

func NewAnthropicProvider(apiKey, modelID string) *AnthropicProvider {
	return &AnthropicProvider{
		apiKey:  apiKey,
		modelID: modelID,
		client:  &http.Client{},
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Decide(ctx context.Context, req Request) (model.TradeDecision, error) {
	if p.apiKey == "" {
		return model.TradeDecision{}, fmt.Errorf("anthropic: api key not configured")
	}

	body, err := json.Marshal(map[string]interface{}{
		"model":       p.modelID,
		"max_tokens":  200,
		"temperature": 0.1,
		"messages": []map[string]string{
			{"role": "user", "content": buildPrompt(req)},
		},
	})
	if err != nil {
		return model.TradeDecision{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", bytes.NewReader(body))
	if err != nil {
		return model.TradeDecision{}, err
	}
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return model.TradeDecision{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.TradeDecision{}, fmt.Errorf("anthropic: status %d", resp.StatusCode)
	}

	var out struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.TradeDecision{}, fmt.Errorf("anthropic: decode response: %w", err)
	}
	if len(out.Content) == 0 {
		return model.TradeDecision{}, fmt.Errorf("anthropic: empty content")
	}

	return parseDecision(out.Content[0].Text)
}
