package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smorand/slides-content-api/internal/auth"
	"github.com/smorand/slides-content-api/internal/config"
	"github.com/smorand/slides-content-api/internal/docstore"
	"github.com/smorand/slides-content-api/internal/permissions"
	"github.com/smorand/slides-content-api/internal/retry"
	"github.com/smorand/slides-content-api/internal/service"
	"github.com/smorand/slides-content-api/internal/template"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	service *service.Service
}

// newApp loads credentials and the template and builds the service.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	spec := template.Default()
	if cfg.TemplateFile != "" {
		loaded, err := template.Load(cfg.TemplateFile)
		if err != nil {
			return nil, err
		}
		spec = loaded
	}

	creds, err := loadCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("credentials loaded",
		slog.String("client_email", creds.ClientEmail),
		slog.String("project_id", creds.ProjectID),
	)

	store, err := docstore.New(ctx, docstore.Config{
		MaxAssignmentsPerBatch: cfg.MaxAssignmentsPerBatch,
		Style:                  spec.Style,
		Retryer:                retry.New(retry.Config{Logger: logger}),
		WriteRetryer:           docstore.NewWriteRetryer(retry.Config{Logger: logger}),
		Logger:                 logger,
	}, creds.TokenSource())
	if err != nil {
		return nil, err
	}

	svcConfig := service.Config{
		Store:    store,
		Template: spec,
		Logger:   logger,
	}
	if cfg.CheckPermissions {
		checker, err := permissions.NewChecker(ctx, permissions.CheckerConfig{Logger: logger}, creds.TokenSource())
		if err != nil {
			return nil, err
		}
		svcConfig.Permissions = checker
	}

	svc, err := service.New(svcConfig)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, service: svc}, nil
}

// loadCredentials picks the key file, then Secret Manager, then application
// default credentials.
func loadCredentials(ctx context.Context, cfg config.Config) (*auth.Credentials, error) {
	switch {
	case cfg.ServiceAccountFile != "":
		return auth.LoadCredentialsFile(ctx, cfg.ServiceAccountFile)
	case cfg.ServiceAccountSecretID != "":
		loader, err := auth.NewSecretLoader(ctx, cfg.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", auth.ErrCredentials, err)
		}
		defer loader.Close()
		return loader.LoadCredentials(ctx, cfg.ServiceAccountSecretID)
	default:
		return auth.DefaultCredentials(ctx)
	}
}
