package main

import (
	"context"
	"os"

	"github.com/biograph/insights/internal/bootstrap"
	"github.com/biograph/insights/internal/mcpserver"
	"github.com/biograph/insights/internal/pkg/logger"
)

// The MCP protocol owns stdout, so every log line goes to stderr.
func main() {
	ctx := context.Background()

	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(os.Stderr)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	infra, err := bootstrap.SetupInfrastructure(ctx, cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to setup infrastructure")
		os.Exit(1)
	}
	defer func() {
		if err := infra.Close(context.WithoutCancel(ctx), lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to release backends")
		}
	}()

	deps := bootstrap.BuildDependencies(cfg, infra, lgr)
	srv := mcpserver.NewServer(deps.Services, mcpserver.SystemActor(), lgr)

	lgr.Info().Str("version", mcpserver.Version).Msg("MCP server listening on stdio")
	if err := srv.Serve(); err != nil {
		lgr.Error().Err(err).Msg("MCP server stopped")
		os.Exit(1)
	}
}
