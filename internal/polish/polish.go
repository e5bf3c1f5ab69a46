package polish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/collabpad/collabpad/internal/config"
	"github.com/collabpad/collabpad/pkg/logger"
)

const systemPrompt = "You are a text polishing assistant. Improve the phrasing of the " +
	"user's text so it reads more elegantly and professionally while preserving its meaning."

// Client calls an OpenAI-compatible chat-completions endpoint to polish text.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewClient(cfg config.PolishConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Polish sends text through the configured model and returns the rewritten
// version. Transport failures are retried once before giving up.
func (c *Client) Polish(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Please polish the following text:\n" + text},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			logger.Warnf("polish: request attempt %d failed: %v", attempt, err)
			if attempt == 1 {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return "", lastErr
		}

		result, err := decodeChatResponse(resp)
		if err != nil {
			return "", err
		}
		return result, nil
	}
	return "", lastErr
}

func decodeChatResponse(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("polish endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("polish endpoint returned no choices")
	}
	return cr.Choices[0].Message.Content, nil
}
