package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIConfig struct {
	APIKey     string `json:"api_key"`
	BaseURL    string `json:"base_url"`
	MaxRetries *int   `json:"max_retries"`
	Timeout    int    `json:"timeout"`
}

type openAIProvider struct {
	apiKey  string
	baseURL string
	caller  *httpCaller
}

type openAIChatRequest struct {
	Model     string    `json:"model,omitempty"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	Stream    bool      `json:"stream"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIEmbedRequest struct {
	Model string `json:"model,omitempty"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *openAIProvider) Name() string {
	return "openai"
}

func (p *openAIProvider) Complete(ctx context.Context, model string, messages []Message, maxTokens int) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}
	endpoint := strings.TrimRight(p.baseURL, "/") + "/chat/completions"
	var out openAIChatResponse
	err := p.caller.postJSON(ctx, endpoint, map[string]string{"Authorization": "Bearer " + p.apiKey}, openAIChatRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}, &out)
	if err != nil {
		return "", err
	}
	return firstChoice("openai", out)
}

func (p *openAIProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	_ = taskType
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	endpoint := strings.TrimRight(p.baseURL, "/") + "/embeddings"
	var out openAIEmbedResponse
	err := p.caller.postJSON(ctx, endpoint, map[string]string{"Authorization": "Bearer " + p.apiKey}, openAIEmbedRequest{
		Model: model,
		Input: text,
	}, &out)
	if err != nil {
		return nil, err
	}
	return firstEmbedding("openai", out)
}

func firstChoice(name string, out openAIChatResponse) (string, error) {
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s response has no choices", name)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func firstEmbedding(name string, out openAIEmbedResponse) ([]float32, error) {
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%s response has no embeddings", name)
	}
	return out.Data[0].Embedding, nil
}

func retriesOrDefault(v *int) int {
	if v == nil {
		return defaultMaxRetries
	}
	return *v
}

func createOpenAIFactory(args interface{}) (IProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIProvider{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		caller:  newHTTPCaller("openai", retriesOrDefault(cfg.MaxRetries), time.Duration(cfg.Timeout)*time.Second),
	}, nil
}

func init() {
	Register("openai", createOpenAIFactory)
}
