package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v9"
	"github.com/sandevgo/omnimind/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"OMNIMIND_RUNTIME_PATH" envDefault:".omnimind"`

	// Context Management
	HistoryWindowSize  int `env:"HISTORY_WINDOW_SIZE" envDefault:"20"`
	HistoryTokenBudget int `env:"HISTORY_TOKEN_BUDGET" envDefault:"4096"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "omnimind.db")
}

func (c AppConfig) GetMCPConfigPath() string {
	return filepath.Join(c.RuntimePath, "mcp_config.json")
}
