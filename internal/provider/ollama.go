package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

// OllamaProvider calls a local Ollama instance.
type OllamaProvider struct {
	baseURL string
	modelID string
	client  *http.Client
}

func NewOllamaProvider(baseURL, modelID string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaProvider{
		baseURL: baseURL,
		modelID: modelID,
		client:  &http.Client{},
	}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Decide(ctx context.Context, req Request) (model.TradeDecision, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model":  p.modelID,
		"prompt": buildPrompt(req),
		"stream": false,
		"options": map[string]interface{}{
			"temperature": 0.1,
		},
	})
	if err != nil {
		return model.TradeDecision{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
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
		return model.TradeDecision{}, fmt.Errorf("ollama: status %d", resp.StatusCode)
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.TradeDecision{}, fmt.Errorf("ollama: decode response: %w", err)
	}

	return parseDecision(out.Response)
}
