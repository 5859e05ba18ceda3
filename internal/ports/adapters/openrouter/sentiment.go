package openrouter

import (
	"encoding/json"
	"fmt"
	"strings"
)

type sentimentItem struct {
	Idx  int    `json:"idx"`
	Text string `json:"text"`
}

func buildPrompt(textsJSON []byte) []byte {
	return []byte(
		"Classify the sentiment of each transcript line below, one result per idx. " +
			"Return strictly valid JSON (no markdown, no code fences) matching the provided schema. " +
			"label is POSITIVE or NEGATIVE; confidence is your certainty in that label between 0 and 1. " +
			"Judge each line on its own, as a binary sentiment classifier would." +
			"\n\nTexts JSON:\n" + string(textsJSON),
	)
}

func sentimentSchema() map[string]any {
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name": "trailercut_sentiment",
			"schema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"results": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"idx":        map[string]any{"type": "integer"},
								"label":      map[string]any{"type": "string", "enum": []string{"POSITIVE", "NEGATIVE"}},
								"confidence": map[string]any{"type": "number"},
							},
							"required": []string{"idx", "label", "confidence"},
						},
					},
				},
				"required": []string{"results"},
			},
		},
	}
}

// parseSentimentReply maps the model reply back onto batch positions. Every
// idx in [0,n) must be answered.
func parseSentimentReply(clean string, n int) ([]float64, error) {
	var reply struct {
		Results []struct {
			Idx        int     `json:"idx"`
			Label      string  `json:"label"`
			Confidence float64 `json:"confidence"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(clean), &reply); err != nil {
		return nil, fmt.Errorf("openrouter: decode sentiment reply: %w", err)
	}

	out := make([]float64, n)
	seen := make([]bool, n)
	covered := 0
	for _, r := range reply.Results {
		if r.Idx < 0 || r.Idx >= n || seen[r.Idx] {
			continue
		}
		s, err := signedScore(r.Label, r.Confidence)
		if err != nil {
			return nil, err
		}
		out[r.Idx] = s
		seen[r.Idx] = true
		covered++
	}
	if covered != n {
		return nil, fmt.Errorf("openrouter: sentiment reply covers %d of %d texts", covered, n)
	}
	return out, nil
}

// signedScore is the confidence for POSITIVE and its negation for NEGATIVE.
func signedScore(label string, confidence float64) (float64, error) {
	c := clamp(confidence, 0, 1)
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "POSITIVE":
		return c, nil
	case "NEGATIVE":
		return -c, nil
	case "NEUTRAL":
		return 0, nil
	default:
		return 0, fmt.Errorf("openrouter: unknown sentiment label %q", label)
	}
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
