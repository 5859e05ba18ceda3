package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client

	batchSize  int
	newBackOff func() backoff.BackOff
}

const (
	requestTimeout   = 90 * time.Second
	defaultBatchSize = 40
)

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = "anthropic/claude-3.5-sonnet"
	}
	baseURL = normalizeBaseURL(baseURL)
	return &Adapter{
		key:        apiKey,
		model:      model,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 5 * time.Minute},
		batchSize:  defaultBatchSize,
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 20 * time.Second
	bo.MaxElapsedTime = 2 * time.Minute
	return bo
}

// ScoreTexts classifies every text as positive or negative and returns the
// model confidence, negated for negative texts. Blank texts score 0 without
// a request.
func (a *Adapter) ScoreTexts(ctx context.Context, texts []string) ([]float64, error) {
	out := make([]float64, len(texts))
	var pending []int
	for i, t := range texts {
		if strings.TrimSpace(t) != "" {
			pending = append(pending, i)
		}
	}

	size := a.batchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	for lo := 0; lo < len(pending); lo += size {
		batch := pending[lo:min(lo+size, len(pending))]
		items := make([]sentimentItem, len(batch))
		for k, i := range batch {
			items[k] = sentimentItem{Idx: k, Text: texts[i]}
		}

		var scores []float64
		op := func() error {
			var err error
			scores, err = a.scoreBatch(ctx, items)
			return err
		}
		if err := backoff.Retry(op, backoff.WithContext(a.newBackOff(), ctx)); err != nil {
			return nil, err
		}
		for k, i := range batch {
			out[i] = scores[k]
		}
	}
	return out, nil
}

func (a *Adapter) scoreBatch(ctx context.Context, items []sentimentItem) ([]float64, error) {
	pb, err := json.Marshal(map[string]any{"texts": items})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("marshal prompt: %w", err))
	}

	payload := map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []map[string]any{
			{"role": "user", "content": string(buildPrompt(pb))},
		},
		"response_format": sentimentSchema(),
	}
	content, err := a.complete(ctx, payload)
	if err != nil {
		return nil, err
	}

	clean, err := extractJSONObject(content)
	if err != nil {
		return nil, err
	}
	return parseSentimentReply(clean, len(items))
}

// complete posts a chat completion and returns the first choice's content.
// Errors that a retry cannot fix are wrapped with backoff.Permanent.
func (a *Adapter) complete(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("marshal request: %w", err))
	}
	url := a.baseURL + "/api/v1/chat/completions"

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("openrouter timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return "", fmt.Errorf("openrouter request: %s", redactSecrets(err.Error(), a.key))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("openrouter status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		statusErr := fmt.Errorf("openrouter status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
		if retryableStatus(resp.StatusCode) {
			return "", statusErr
		}
		return "", backoff.Permanent(statusErr)
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("openrouter decode response: %w", err)
	}
	if len(raw.Choices) == 0 {
		return "", errors.New("openrouter: no choices in response")
	}
	return messageContentToString(raw.Choices[0].Message.Content)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("openrouter: empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("openrouter: empty content")
	}

	// Strip markdown code fences.
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}

	return "", fmt.Errorf("openrouter: could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
