package llm

import (
	"github.com/sandevgo/omnimind/internal/config"
	"github.com/sandevgo/omnimind/internal/core"
)

// NewProvider builds an AI provider from a model config block. Every
// supported backend speaks the OpenAI-compatible wire format, so one
// implementation covers them all.
func NewProvider(cfg config.ModelConfig) core.AIProvider {
	return NewOpenAICompatible(Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Name,
		AuthHeader: "Authorization",
		AuthPrefix: "Bearer ",
		ExtraHeaders: map[string]string{
			"User-Agent": core.AppUserAgent,
		},
	})
}
