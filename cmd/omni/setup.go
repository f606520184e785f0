package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/omnimind/internal/config"
	"github.com/sandevgo/omnimind/internal/core"
	"github.com/sandevgo/omnimind/internal/providers/llm"
	"github.com/sandevgo/omnimind/internal/providers/mcp"
	"github.com/sandevgo/omnimind/internal/providers/mcp/tools"
	"github.com/sandevgo/omnimind/internal/providers/mem0"
	"github.com/sandevgo/omnimind/internal/service/chat"
	"github.com/sandevgo/omnimind/internal/service/memory"
	"github.com/sandevgo/omnimind/internal/storage/sqlite"
	"github.com/sandevgo/omnimind/internal/transport/httpapi"
	"github.com/sandevgo/omnimind/pkg/log"
	"github.com/sandevgo/omnimind/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	serverCfg := config.NewServerConfig(ctx)
	fastCfg := config.NewFastModelConfig(ctx)
	advancedCfg := config.NewAdvancedModelConfig(ctx)
	mem0Cfg := config.NewMem0Config(ctx)

	// 2. Storage
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))

	rulesRepo := sqlite.NewRules(db)
	historyRepo := sqlite.NewHistory(db)
	sessionsRepo := sqlite.NewSessions(db)

	// 3. Model providers
	fastProvider := llm.NewProvider(fastCfg.Model())
	advancedProvider := llm.NewProvider(advancedCfg.Model())

	// 4. Vector memory
	if !mem0Cfg.Enabled() {
		logger.Warn().Msg("MEM0_API_KEY not set, soft facts disabled")
	}
	vector := mem0.NewClient(mem0Cfg.BaseURL, mem0Cfg.APIKey)

	// 5. Memory pipeline
	memoryService := memory.NewService(rulesRepo, vector)
	extractor := memory.NewExtractor(fastProvider, advancedProvider, memoryService)

	// 6. MCP & Tools
	var toolProvider core.ToolProvider
	mcpManager, err := initMCP(ctx, appCfg)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize MCP manager, tools disabled")
	} else {
		services = append(services, mcpManager)
		toolProvider = mcpManager
	}

	// 7. Turn orchestrator
	orchestrator := chat.NewOrchestrator(chat.Deps{
		Provider:    advancedProvider,
		Fast:        fastProvider,
		Tools:       toolProvider,
		Memory:      memoryService,
		Extractor:   extractor,
		History:     historyRepo,
		Sessions:    sessionsRepo,
		WindowSize:  appCfg.HistoryWindowSize,
		TokenBudget: appCfg.HistoryTokenBudget,
	})

	// 8. HTTP transport
	handlers := httpapi.NewHandlers(ctx, orchestrator, memoryService, sessionsRepo)
	services = append(services, httpapi.NewServer(serverCfg.ListenAddr, handlers))

	return services
}

func initMCP(ctx context.Context, cfg *config.AppConfig) (*mcp.Manager, error) {
	mgr, err := mcp.NewManager(ctx, cfg.GetMCPConfigPath())
	if err != nil {
		return nil, err
	}

	// Helper to register a toolset
	register := func(t interface {
		GetDefinitions() map[string]struct {
			Description string
			Schema      string
			Handler     func(context.Context, json.RawMessage) (string, error)
		}
	}) {
		for name, def := range t.GetDefinitions() {
			mgr.RegisterNativeTool(name, def.Description, json.RawMessage(def.Schema), def.Handler)
		}
	}

	register(tools.NewFetch())

	return mgr, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
