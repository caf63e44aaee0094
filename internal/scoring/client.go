package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mingkaili/ai-trading-signal-engine/pkg/config"
	"github.com/mingkaili/ai-trading-signal-engine/pkg/logger"
)

const systemPrompt = "You are an equity analyst scoring business acceleration. " +
	"Base your assessment strictly on the provided text; never invent facts. " +
	"Respond with a single JSON object and nothing else, using the schema: " +
	`{"growth_phase": "decelerating|stable|early_acceleration|strong_acceleration", ` +
	`"conviction": <integer 0-100>, "hype_risk": "low|medium|high", ` +
	`"evidence": [<strings>], "risks": [<strings>]}`

// Client is an OpenAI-compatible chat-completions client for the text
// scorer. It owns its HTTP client so connection pooling is tuned for
// the long-lived scoring calls; the context deadline bounds each call.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	timeout  time.Duration
	client   *http.Client
	logger   *logger.Logger
}

// NewClient creates a new scorer client.
func NewClient(cfg config.ScorerConfig, log *logger.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		client:   &http.Client{Transport: transport},
		logger:   log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
		Finish  string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends one scoring prompt and returns the raw model output.
// Single attempt; the scheduler owns retry policy.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("scorer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("scorer API error %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response failed: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("scorer returned no choices")
	}

	c.logger.WithFields(map[string]interface{}{
		"model":    c.model,
		"tokens":   chatResp.Usage.TotalTokens,
		"duration": time.Since(start),
	}).Debug("Scorer completion finished")

	return chatResp.Choices[0].Message.Content, nil
}

// BuildPrompt assembles the user prompt for one symbol's source text.
func BuildPrompt(symbol, text string) string {
	return fmt.Sprintf("Ticker: %s\n\nSource text:\n%s\n\nScore the business acceleration described above.", symbol, text)
}
