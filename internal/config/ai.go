package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// Provider selects the hosted completion backend.
type Provider string

const (
	ProviderAzure Provider = "azure"
	ProviderArk   Provider = "ark"
)

// AIConfig describes the remote completion endpoint. For Azure, Deployment is
// the deployment name and Endpoint the resource URL; for Ark, Deployment is
// the model/endpoint id and APIVersion is unused.
type AIConfig struct {
	Provider       Provider
	APIVersion     string
	Deployment     string
	Endpoint       string
	APIKey         string
	Region         string
	Temperature    *float64
	MaxTokens      *int
	Timeout        time.Duration
	StreamResponse bool
}

func loadAIConfig() (AIConfig, error) {
	provider := Provider(strings.ToLower(getEnvOrDefault("AI_PROVIDER", string(ProviderAzure))))
	if provider != ProviderAzure && provider != ProviderArk {
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q: want azure or ark", provider)
	}

	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		defaultTemperature := 0.7
		temperature = &defaultTemperature
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeoutSeconds := 60
	if override, err := parseOptionalIntEnv("AI_TIMEOUT"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		timeoutSeconds = *override
	}

	stream, err := parseBoolEnv("AI_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		Provider:       provider,
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		Timeout:        time.Duration(timeoutSeconds) * time.Second,
		StreamResponse: stream,
	}

	switch provider {
	case ProviderArk:
		cfg.APIKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		cfg.Deployment = strings.TrimSpace(os.Getenv("ARK_MODEL"))
		cfg.Endpoint = getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
		cfg.Region = getEnvOrDefault("ARK_REGION", "cn-beijing")
	default:
		cfg.APIVersion = strings.TrimSpace(os.Getenv("OPENAI_API_VERSION"))
		cfg.Deployment = strings.TrimSpace(os.Getenv("AZURE_GPT_DEPLOYMENT"))
		cfg.Endpoint = strings.TrimSpace(os.Getenv("AZURE_OPENAI_ENDPOINT"))
		cfg.APIKey = strings.TrimSpace(os.Getenv("AZURE_OPENAI_API_KEY"))
	}

	return cfg, nil
}

// Validate checks that every required value is present and that tuning
// parameters are within what the providers accept.
func (c AIConfig) Validate() error {
	var missing []string
	require := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	switch c.Provider {
	case ProviderArk:
		require(c.APIKey, "ARK_API_KEY")
		require(c.Deployment, "ARK_MODEL")
		require(c.Endpoint, "ARK_BASE_URL")
	case ProviderAzure, "":
		require(c.APIVersion, "OPENAI_API_VERSION")
		require(c.Deployment, "AZURE_GPT_DEPLOYMENT")
		require(c.Endpoint, "AZURE_OPENAI_ENDPOINT")
		require(c.APIKey, "AZURE_OPENAI_API_KEY")
	default:
		return &ConfigurationError{Kind: KindUnsupportedParameter, Fields: []string{"AI_PROVIDER"}}
	}
	if len(missing) > 0 {
		return &ConfigurationError{Kind: KindMissing, Fields: missing}
	}

	var unsupported []string
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		unsupported = append(unsupported, "AI_TEMPERATURE")
	}
	if c.MaxTokens != nil && *c.MaxTokens <= 0 {
		unsupported = append(unsupported, "AI_MAX_TOKENS")
	}
	if c.Timeout <= 0 {
		unsupported = append(unsupported, "AI_TIMEOUT")
	}
	if len(unsupported) > 0 {
		return &ConfigurationError{Kind: KindUnsupportedParameter, Fields: unsupported}
	}
	return nil
}

// Enabled reports whether the configuration can back a chat model.
func (c AIConfig) Enabled() bool {
	return c.Validate() == nil
}

// ProviderName is used as a metrics and log label.
func (c AIConfig) ProviderName() string {
	if c.Provider == "" {
		return string(ProviderAzure)
	}
	return string(c.Provider)
}

// NewChatModel builds the provider's chat model. Every failure is returned as
// a *ConfigurationError; there is no retry with a reduced parameter set.
func (c AIConfig) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch c.Provider {
	case ProviderArk:
		chatModel, err = ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.Endpoint,
			Region:      c.Region,
			APIKey:      c.APIKey,
			Model:       c.Deployment,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
	default:
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			ByAzure:     true,
			BaseURL:     c.Endpoint,
			APIVersion:  c.APIVersion,
			APIKey:      c.APIKey,
			Model:       c.Deployment,
			MaxTokens:   maxTokens,
			Temperature: temperature,
			Timeout:     c.Timeout,
		})
	}
	if err != nil {
		return nil, &ConfigurationError{Kind: KindModelInit, Err: err}
	}
	return chatModel, nil
}
