package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/omnimind/pkg/log"
)

// Mem0Config is optional: with no API key the soft-fact tier degrades
// to a no-op and only hard rules are in play.
type Mem0Config struct {
	APIKey  string `env:"MEM0_API_KEY"`
	BaseURL string `env:"MEM0_BASE_URL" envDefault:"https://api.mem0.ai"`
}

func NewMem0Config(ctx context.Context) *Mem0Config {
	c := &Mem0Config{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Mem0 config")
	}
	return c
}

func (c Mem0Config) Enabled() bool {
	return c.APIKey != ""
}
