package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrEmptyContent marks a response that parsed but carried no message text.
var ErrEmptyContent = errors.New("empty completion content")

// maxErrorBody bounds how much of a failed response body lands in errors.
const maxErrorBody = 512

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func newJSONRequest(model, systemPrompt, userPrompt string) chatRequest {
	return chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}
}

// statusError is a non-2xx response.
type statusError struct {
	Code       int
	Body       string
	RetryAfter string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

func (c *Client) send(ctx context.Context, payload chatRequest) (Completion, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Completion{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Completion{}, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Completion{}, &statusError{
			Code:       resp.StatusCode,
			Body:       snippet(string(raw), maxErrorBody),
			RetryAfter: resp.Header.Get("Retry-After"),
		}
	}

	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Completion{}, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return Completion{}, fmt.Errorf("api error: %s", strings.TrimSpace(decoded.Error.Message))
	}
	completion := Completion{}
	if decoded.Usage != nil {
		completion.Usage = *decoded.Usage
	}
	if len(decoded.Choices) == 0 {
		return completion, fmt.Errorf("%w: no choices", ErrEmptyContent)
	}
	choice := decoded.Choices[0]
	completion.Content = strings.TrimSpace(choice.Message.Content)
	if completion.Content == "" {
		detail := "finish_reason=" + choice.FinishReason
		if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
			detail += " refusal=" + snippet(refusal, 160)
		}
		return completion, fmt.Errorf("%w (%s)", ErrEmptyContent, detail)
	}
	return completion, nil
}

func snippet(s string, limit int) string {
	clean := strings.Join(strings.Fields(s), " ")
	if clean == "" {
		return "<empty>"
	}
	runes := []rune(clean)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
