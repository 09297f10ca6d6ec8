package ai

import (
	"strings"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openRouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

func createOpenRouterFactory(args interface{}) (IProvider, error) {
	cfg := &openRouterConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	headers := map[string]string{}
	if referer := strings.TrimSpace(cfg.HTTPReferer); referer != "" {
		headers["HTTP-Referer"] = referer
	}
	if title := strings.TrimSpace(cfg.XTitle); title != "" {
		headers["X-Title"] = title
	}
	return &openAIProvider{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		headers: headers,
		name:    "openrouter",
	}, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
