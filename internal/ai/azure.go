package ai

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const defaultAzureAPIVersion = "2024-02-01"

type azureConfig struct {
	APIKey     string `json:"api_key"`
	Endpoint   string `json:"endpoint"`
	APIVersion string `json:"api_version"`
	MaxRetries *int   `json:"max_retries"`
	Timeout    int    `json:"timeout"`
}

// azureProvider talks to Azure OpenAI, where the model name is the
// deployment name in the request path.
type azureProvider struct {
	apiKey     string
	endpoint   string
	apiVersion string
	caller     *httpCaller
}

func (p *azureProvider) Name() string {
	return "azure"
}

func (p *azureProvider) deploymentURL(model, op string) string {
	return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
		strings.TrimRight(p.endpoint, "/"),
		url.PathEscape(model),
		op,
		url.QueryEscape(p.apiVersion),
	)
}

func (p *azureProvider) Complete(ctx context.Context, model string, messages []Message, maxTokens int) (string, error) {
	if p.apiKey == "" || p.endpoint == "" {
		return "", ErrUnavailable
	}
	var out openAIChatResponse
	err := p.caller.postJSON(ctx, p.deploymentURL(model, "chat/completions"), map[string]string{"api-key": p.apiKey}, openAIChatRequest{
		Messages:  messages,
		MaxTokens: maxTokens,
	}, &out)
	if err != nil {
		return "", err
	}
	return firstChoice("azure", out)
}

func (p *azureProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	_ = taskType
	if p.apiKey == "" || p.endpoint == "" {
		return nil, ErrUnavailable
	}
	var out openAIEmbedResponse
	err := p.caller.postJSON(ctx, p.deploymentURL(model, "embeddings"), map[string]string{"api-key": p.apiKey}, openAIEmbedRequest{
		Input: text,
	}, &out)
	if err != nil {
		return nil, err
	}
	return firstEmbedding("azure", out)
}

func createAzureFactory(args interface{}) (IProvider, error) {
	cfg := &azureConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAzureAPIVersion
	}
	return &azureProvider{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		apiVersion: apiVersion,
		caller:     newHTTPCaller("azure", retriesOrDefault(cfg.MaxRetries), time.Duration(cfg.Timeout)*time.Second),
	}, nil
}

func init() {
	Register("azure", createAzureFactory)
}
