package ai

import (
	"context"
	"strings"
	"time"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openrouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
	MaxRetries  *int   `json:"max_retries"`
	Timeout     int    `json:"timeout"`
}

type openrouterProvider struct {
	apiKey      string
	baseURL     string
	httpReferer string
	xTitle      string
	caller      *httpCaller
}

func (p *openrouterProvider) Name() string {
	return "openrouter"
}

func (p *openrouterProvider) headers() map[string]string {
	h := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if p.httpReferer != "" {
		h["HTTP-Referer"] = p.httpReferer
	}
	if p.xTitle != "" {
		h["X-Title"] = p.xTitle
	}
	return h
}

func (p *openrouterProvider) Complete(ctx context.Context, model string, messages []Message, maxTokens int) (string, error) {
	if p.apiKey == "" {
		return "", ErrUnavailable
	}
	endpoint := strings.TrimRight(p.baseURL, "/") + "/chat/completions"
	var out openAIChatResponse
	err := p.caller.postJSON(ctx, endpoint, p.headers(), openAIChatRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}, &out)
	if err != nil {
		return "", err
	}
	return firstChoice("openrouter", out)
}

// Embed is not offered by openrouter; a group embedder moves on to the next
// provider.
func (p *openrouterProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	return nil, ErrUnavailable
}

func createOpenRouterFactory(args interface{}) (IProvider, error) {
	cfg := &openrouterConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return &openrouterProvider{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     baseURL,
		httpReferer: strings.TrimSpace(cfg.HTTPReferer),
		xTitle:      strings.TrimSpace(cfg.XTitle),
		caller:      newHTTPCaller("openrouter", retriesOrDefault(cfg.MaxRetries), time.Duration(cfg.Timeout)*time.Second),
	}, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
