package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
	"github.com/KoTeHok22/locus/internal/infrastructure/resilience"
)

// Client talks to an OpenAI-compatible chat completion endpoint serving a
// Qwen vision model. Scanned delivery notes go in as data-URI images,
// born-digital ones as plain text.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Recognize(ctx context.Context, input ports.RecognitionInput) (*domain.RecognizedData, error) {
	var raw string
	call := func(ctx context.Context) error {
		var err error
		raw, err = c.complete(ctx, input)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "qwen.recognize", call, classifyQwenError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("recognize delivery note", err)
	}

	var data domain.RecognizedData
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &data); err != nil {
		return nil, fmt.Errorf("parse recognition json: %w", err)
	}
	if data.Items == nil {
		data.Items = []domain.RecognizedItem{}
	}
	return &data, nil
}

func (c *Client) complete(ctx context.Context, input ports.RecognitionInput) (string, error) {
	message := chatMessage{Role: "user"}
	if input.ImageBase64 != "" {
		message.Content = []contentPart{
			{Type: "text", Text: recognitionPrompt},
			{Type: "image_url", ImageURL: &imageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", input.MimeType, input.ImageBase64),
			}},
		}
	} else {
		message.Content = recognitionPrompt + "\n\nДокумент:\n" + truncate(input.Text, maxTextSnippet)
	}

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{message},
		Temperature: 0,
	}
	reqBody.ResponseFormat = &struct {
		Type string `json:"type"`
	}{Type: "json_object"}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("qwen chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", newHTTPStatusError("chat", resp)
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("empty chat response")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func newHTTPStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
