package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smorand/slides-content-api/internal/auth"
	"github.com/smorand/slides-content-api/internal/middleware"
	"github.com/smorand/slides-content-api/internal/ratelimit"
	"github.com/smorand/slides-content-api/internal/transport"
	"github.com/smorand/slides-content-api/internal/usecase"
)

var (
	useCasesFile string
	agentName    string
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	server := transport.NewServer(transport.ServerConfig{
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
		Service:        a.service,
		Version:        version,
		Logger:         logger,
	})

	if cfg.APIKeyAuth {
		store, err := auth.NewAPIKeyStore(ctx, cfg.ProjectID, cfg.APIKeyCollection)
		if err != nil {
			return err
		}
		defer store.Close()

		server.SetAPIKeyMiddleware(middleware.NewAPIKeyMiddleware(middleware.APIKeyMiddlewareConfig{
			Store:          store,
			UpdateLastUsed: true,
			Logger:         logger,
		}))
		logger.Info("API key authentication enabled", slog.String("collection", cfg.APIKeyCollection))
	}

	limits := ratelimit.Config{
		Default: ratelimit.Limit{RequestsPerSecond: cfg.RateLimitRPS, BurstSize: cfg.RateLimitBurst},
		Logger:  logger,
	}
	if cfg.WriteRateLimitRPS > 0 {
		write := ratelimit.Limit{RequestsPerSecond: cfg.WriteRateLimitRPS, BurstSize: cfg.RateLimitBurst}
		limits.Endpoints = map[string]ratelimit.Limit{
			"/slides/write":       write,
			"/slides/write/cells": write,
		}
	}
	server.SetRateLimitMiddleware(ratelimit.New(limits))

	return server.Start(ctx)
}

func runRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, commandLogger(cmd, cfg.LogLevel))
	if err != nil {
		return err
	}

	result, err := a.service.Read(ctx, args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	useCases, err := readUseCases(cmd.InOrStdin(), useCasesFile)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, commandLogger(cmd, cfg.LogLevel))
	if err != nil {
		return err
	}

	result, err := a.service.Plan(ctx, args[0], useCases)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.ProjectID == "" {
		return fmt.Errorf("GOOGLE_PROJECT_ID is required to store API keys")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	store, err := auth.NewAPIKeyStore(ctx, cfg.ProjectID, cfg.APIKeyCollection)
	if err != nil {
		return err
	}
	defer store.Close()

	key, err := auth.GenerateAPIKey()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := store.Store(ctx, &auth.APIKeyRecord{
		APIKey:    key,
		Agent:     agentName,
		CreatedAt: now,
		LastUsed:  now,
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "API key for %s: %s\n", agentName, key)
	return nil
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.ProjectID == "" {
		return fmt.Errorf("GOOGLE_PROJECT_ID is required to revoke API keys")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	store, err := auth.NewAPIKeyStore(ctx, cfg.ProjectID, cfg.APIKeyCollection)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Revoke(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", auth.MaskAPIKey(args[0]))
	return nil
}

// readUseCases decodes a JSON use case array from path, or stdin for "-".
func readUseCases(stdin io.Reader, path string) ([]usecase.UseCase, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open use cases: %w", err)
		}
		defer f.Close()
		r = f
	}

	var useCases []usecase.UseCase
	if err := json.NewDecoder(r).Decode(&useCases); err != nil {
		return nil, fmt.Errorf("failed to parse use cases: %w", err)
	}
	return useCases, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
