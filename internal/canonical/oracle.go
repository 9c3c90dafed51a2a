package canonical

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultOracleModel is the chat model used for semantic matching when
	// none is configured.
	DefaultOracleModel = "gpt-4o-mini"
	// DefaultOracleTimeout bounds a single oracle call.
	DefaultOracleTimeout = 30 * time.Second
)

// Oracle answers whether two free-text names denote the same programme. It is
// a best-effort external judge: callers treat errors as a non-match.
type Oracle interface {
	SameProgramme(ctx context.Context, a, b string) (bool, error)
}

// ChatOracle asks an OpenAI-compatible chat completions endpoint for a yes/no
// judgement on a name pair.
type ChatOracle struct {
	endpointURL string
	model       string
	apiKey      string
	client      *http.Client
}

func NewChatOracle(endpoint, model, apiKey string, timeout time.Duration) *ChatOracle {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultOracleModel
	}
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	return &ChatOracle{
		endpointURL: chatCompletionsURL(endpoint),
		model:       model,
		apiKey:      strings.TrimSpace(apiKey),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// ModelName returns the configured model identifier.
func (o *ChatOracle) ModelName() string {
	if o == nil {
		return ""
	}
	return o.model
}

type oracleChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oracleChatRequest struct {
	Model       string              `json:"model"`
	Messages    []oracleChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
}

type oracleChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *ChatOracle) SameProgramme(ctx context.Context, a, b string) (bool, error) {
	if o == nil {
		return false, fmt.Errorf("oracle is nil")
	}
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false, nil
	}

	prompt := fmt.Sprintf(
		"Do these two program names refer to the same postgraduate programme? A: %s B: %s. Reply yes or no.",
		a, b,
	)
	body, err := json.Marshal(oracleChatRequest{
		Model: o.model,
		Messages: []oracleChatMessage{
			{
				Role:    "user",
				Content: prompt,
			},
		},
		Temperature: 0,
	})
	if err != nil {
		return false, fmt.Errorf("marshal oracle request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpointURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build oracle request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("call oracle: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var parsed oracleChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("decode oracle response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return false, fmt.Errorf("oracle response has no choices")
	}

	reply := strings.ToLower(strings.TrimSpace(parsed.Choices[0].Message.Content))
	return reply == "yes", nil
}

func chatCompletionsURL(endpoint string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if trimmed == "" {
		trimmed = "https://api.openai.com/v1"
	}
	if strings.HasSuffix(trimmed, "/chat/completions") {
		return trimmed
	}
	return trimmed + "/chat/completions"
}
