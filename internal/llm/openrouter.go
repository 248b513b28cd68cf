package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// openrouterProvider speaks the OpenAI-compatible chat completion API.
type openrouterProvider struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  http.Client
}

type orRequest struct {
	Model          string         `json:"model"`
	Messages       []orMessage    `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat *orResponseFmt `json:"response_format,omitempty"`
}

type orMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type orResponseFmt struct {
	Type string `json:"type"`
}

type orResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (o *openrouterProvider) Name() string {
	return "openrouter/" + o.model
}

func (o *openrouterProvider) Generate(ctx context.Context, prompt string) (string, error) {
	req := orRequest{
		Model:          o.model,
		Messages:       []orMessage{{Role: "user", Content: prompt}},
		Temperature:    0.2,
		ResponseFormat: &orResponseFmt{Type: "json_object"},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed orResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("llm error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in llm response")
	}
	return parsed.Choices[0].Message.Content, nil
}
