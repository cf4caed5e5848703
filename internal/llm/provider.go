package llm

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/pkg/errors"
)

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderClaude = "claude"
)

const defaultMaxTokens = 1024

var (
	ErrAPIKeyMustBeSet  = errors.New("api key must be set")
	ErrUnknownProvider  = errors.New("unknown model provider")
	ErrModelNameMissing = errors.New("model name must be set")
)

// ProviderConfig configures a chat model backend.
type ProviderConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// NewProvider builds the eino chat model of cfg.Provider.
func NewProvider(ctx context.Context, cfg ProviderConfig) (model.BaseChatModel, error) {
	if cfg.Model == "" {
		return nil, ErrModelNameMissing
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAI(ctx, cfg)
	case ProviderOllama:
		return NewOllama(ctx, cfg)
	case ProviderClaude:
		return NewClaude(ctx, cfg)
	}

	return nil, errors.Wrapf(ErrUnknownProvider, "%q", cfg.Provider)
}

// NewOpenAI builds a chat model talking to an OpenAI compatible API.
func NewOpenAI(ctx context.Context, cfg ProviderConfig) (model.BaseChatModel, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyMustBeSet
	}

	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to create openai chat model")
	}

	return cm, nil
}

// NewOllama builds a chat model talking to an Ollama server. No key is needed.
func NewOllama(ctx context.Context, cfg ProviderConfig) (model.BaseChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	cm, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to create ollama chat model")
	}

	return cm, nil
}

// NewClaude builds a chat model talking to the Anthropic API.
func NewClaude(ctx context.Context, cfg ProviderConfig) (model.BaseChatModel, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyMustBeSet
	}

	var baseURL *string
	if cfg.BaseURL != "" {
		baseURL = &cfg.BaseURL
	}

	cm, err := claude.NewChatModel(ctx, &claude.Config{
		BaseURL:     baseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to create claude chat model")
	}

	return cm, nil
}
