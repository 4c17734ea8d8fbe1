package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// GeminiProvider speaks the Google generative language API. Its wire
// format is neither OpenAI- nor Anthropic-shaped, so it gets its own
// client.
type GeminiProvider struct {
	apiKey  string
	modelID string
	client  *http.Client
}

func NewGeminiProvider(apiKey, modelID string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  apiKey,
		modelID: modelID,
		client:  &http.Client{},
	}
}

func (p *GeminiProvider) Name() string { return "google" }

func (p *GeminiProvider) Decide(ctx context.Context, req Request) (model.TradeDecision, error) {
	if p.apiKey == "" {
		return model.TradeDecision{}, fmt.Errorf("google: api key not configured")
	}

	body, err := json.Marshal(map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": buildPrompt(req)}}},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     0.1,
			"maxOutputTokens": 200,
		},
	})
	if err != nil {
		return model.TradeDecision{}, err
	}

	endpoint := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		url.PathEscape(p.modelID), url.QueryEscape(p.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return model.TradeDecision{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return model.TradeDecision{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.TradeDecision{}, fmt.Errorf("google: status %d", resp.StatusCode)
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.TradeDecision{}, fmt.Errorf("google: decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return model.TradeDecision{}, fmt.Errorf("google: empty candidates")
	}

	return parseDecision(out.Candidates[0].Content.Parts[0].Text)
}
