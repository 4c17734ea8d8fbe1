package provider

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Achrafcosmo/arena-ai/internal/model"
)

var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareJSONRe   = regexp.MustCompile(`(?s)(\{.*?\})`)
)

// parseDecision extracts a decision from free-form backend text. The text
// may wrap the JSON object in a markdown code fence or surround it with
// prose; the first object found wins. Unrecognized fields are ignored.
func parseDecision(content string) (model.TradeDecision, error) {
	jsonStr := content
	if m := fencedJSONRe.FindStringSubmatch(content); m != nil {
		jsonStr = m[1]
	} else if m := bareJSONRe.FindStringSubmatch(content); m != nil {
		jsonStr = m[1]
	}

	var raw struct {
		Action   string      `json:"action"`
		Leverage json.Number `json:"leverage"`
		SizePct  json.Number `json:"size_pct"`
		Reason   string      `json:"reason"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(jsonStr)), &raw); err != nil {
		return model.TradeDecision{}, fmt.Errorf("parse decision: %w", err)
	}

	leverage := 1
	if lv, err := raw.Leverage.Float64(); err == nil {
		leverage = int(math.Floor(lv))
	}

	sizePct := decimal.Zero
	if sp, err := decimal.NewFromString(raw.SizePct.String()); err == nil {
		sizePct = sp
	}

	reason := raw.Reason
	if reason == "" {
		reason = "No reason provided"
	}

	return model.TradeDecision{
		Action:   model.Action(raw.Action),
		Leverage: leverage,
		SizePct:  sizePct,
		Reason:   reason,
	}, nil
}
