package main

import (
	"context"
	"os"

	"github.com/biograph/insights/internal/pkg/logger"
	"github.com/biograph/insights/internal/server"
)

// @title BioGraph Curriculum Insights API
// @version 1.0
// @description Prerequisite graph, recommendations, graduation paths and validated status changes for BioGraph

// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT issued by the BioGraph academic records API

func main() {
	srv, err := server.NewServer(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
