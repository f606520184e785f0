package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/omnimind/pkg/log"
)

// ModelConfig describes one chat completion backend.
type ModelConfig struct {
	APIKey  string
	BaseURL string
	Name    string
}

// FastModelConfig is the cheap model used for conversation titles and
// memory extraction when no image is involved.
type FastModelConfig struct {
	APIKey  string `env:"FAST_MODEL_API_KEY,required,notEmpty"`
	BaseURL string `env:"FAST_MODEL_BASE_URL,required,notEmpty"`
	Name    string `env:"FAST_MODEL_NAME,required,notEmpty"`
}

// AdvancedModelConfig is the main model that answers the user and
// handles multimodal extraction.
type AdvancedModelConfig struct {
	APIKey  string `env:"ADVANCED_MODEL_API_KEY,required,notEmpty"`
	BaseURL string `env:"ADVANCED_MODEL_BASE_URL,required,notEmpty"`
	Name    string `env:"ADVANCED_MODEL_NAME,required,notEmpty"`
}

func NewFastModelConfig(ctx context.Context) *FastModelConfig {
	c := &FastModelConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Fast model config")
	}
	return c
}

func NewAdvancedModelConfig(ctx context.Context) *AdvancedModelConfig {
	c := &AdvancedModelConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Advanced model config")
	}
	return c
}

func (c FastModelConfig) Model() ModelConfig {
	return ModelConfig{APIKey: c.APIKey, BaseURL: c.BaseURL, Name: c.Name}
}

func (c AdvancedModelConfig) Model() ModelConfig {
	return ModelConfig{APIKey: c.APIKey, BaseURL: c.BaseURL, Name: c.Name}
}
