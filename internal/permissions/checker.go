// Package permissions checks, through Drive file capabilities, what the
// service account may do with a presentation before the service reads or
// writes it.
package permissions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/smorand/slides-content-api/internal/cache"
)

// Level is the service account's access level on a file.
type Level int

// Access levels.
const (
	LevelNone Level = iota
	LevelRead
	LevelWrite
)

// String returns a human-readable string for the level.
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelRead:
		return "read"
	case LevelWrite:
		return "write"
	default:
		return "unknown"
	}
}

// presentationMimeType is the Drive MIME type of a Google Slides file.
const presentationMimeType = "application/vnd.google-apps.presentation"

// Sentinel errors for permission checks.
var (
	ErrNoWritePermission = errors.New("no write permission on this presentation")
	ErrNoReadPermission  = errors.New("no read permission on this presentation")
	ErrFileNotFound      = errors.New("presentation not found")
	ErrNotPresentation   = errors.New("file is not a Google Slides presentation")
	ErrPermissionCheck   = errors.New("failed to check permissions")
)

// DriveService abstracts the Drive API for testing.
type DriveService interface {
	GetFile(ctx context.Context, fileID string) (*drive.File, error)
}

// DriveServiceFactory creates a Drive service from a token source.
type DriveServiceFactory func(ctx context.Context, tokenSource oauth2.TokenSource) (DriveService, error)

// realDriveService wraps the actual Google Drive API.
type realDriveService struct {
	service *drive.Service
}

// GetFile retrieves file metadata with capabilities.
func (s *realDriveService) GetFile(ctx context.Context, fileID string) (*drive.File, error) {
	return s.service.Files.Get(fileID).
		Fields("id,name,mimeType,capabilities(canEdit)").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
}

// NewRealDriveServiceFactory returns a factory that creates real Drive services.
func NewRealDriveServiceFactory() DriveServiceFactory {
	return func(ctx context.Context, tokenSource oauth2.TokenSource) (DriveService, error) {
		service, err := drive.NewService(ctx, option.WithTokenSource(tokenSource))
		if err != nil {
			return nil, fmt.Errorf("failed to create drive service: %w", err)
		}
		return &realDriveService{service: service}, nil
	}
}

// CheckerConfig holds configuration for the permission checker.
type CheckerConfig struct {
	CacheTTL        time.Duration // Default 5 minutes
	CacheMaxEntries int           // Default 1000
	Factory         DriveServiceFactory
	Logger          *slog.Logger
}

// DefaultCheckerConfig returns default configuration.
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{
		CacheTTL:        5 * time.Minute,
		CacheMaxEntries: 1000,
		Logger:          slog.Default(),
	}
}

// Checker resolves the service account's access level per presentation,
// caching results for CacheTTL.
type Checker struct {
	config CheckerConfig
	drive  DriveService
	cache  *cache.LRU[Level]
}

// NewChecker creates a checker authenticated by tokenSource.
func NewChecker(ctx context.Context, config CheckerConfig, tokenSource oauth2.TokenSource) (*Checker, error) {
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if config.CacheMaxEntries == 0 {
		config.CacheMaxEntries = 1000
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Factory == nil {
		config.Factory = NewRealDriveServiceFactory()
	}

	driveService, err := config.Factory(ctx, tokenSource)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionCheck, err)
	}

	return &Checker{
		config: config,
		drive:  driveService,
		cache: cache.New[Level](cache.Config{
			Name:       "permissions",
			MaxEntries: config.CacheMaxEntries,
			TTL:        config.CacheTTL,
			Logger:     config.Logger,
		}),
	}, nil
}

// CheckRead verifies at least read access on the presentation.
func (c *Checker) CheckRead(ctx context.Context, documentID string) error {
	level, err := c.Level(ctx, documentID)
	if err != nil {
		return err
	}
	if level < LevelRead {
		return ErrNoReadPermission
	}
	return nil
}

// CheckWrite verifies write access on the presentation.
func (c *Checker) CheckWrite(ctx context.Context, documentID string) error {
	level, err := c.Level(ctx, documentID)
	if err != nil {
		return err
	}
	if level < LevelWrite {
		return ErrNoWritePermission
	}
	return nil
}

// Level returns the access level on a presentation.
func (c *Checker) Level(ctx context.Context, documentID string) (Level, error) {
	if level, ok := c.cache.Get(documentID); ok {
		c.config.Logger.Debug("permission cache hit",
			slog.String("document_id", documentID),
			slog.String("level", level.String()),
		)
		return level, nil
	}

	file, err := c.drive.GetFile(ctx, documentID)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return LevelNone, ErrFileNotFound
		}
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
			return LevelNone, ErrNoReadPermission
		}
		return LevelNone, fmt.Errorf("%w: %v", ErrPermissionCheck, err)
	}
	if file.MimeType != "" && file.MimeType != presentationMimeType {
		return LevelNone, fmt.Errorf("%w: %s", ErrNotPresentation, file.MimeType)
	}

	// Fetching the file at all means read access.
	level := LevelRead
	if file.Capabilities != nil && file.Capabilities.CanEdit {
		level = LevelWrite
	}

	c.cache.Set(documentID, level)
	c.config.Logger.Debug("permission check complete",
		slog.String("document_id", documentID),
		slog.String("level", level.String()),
	)
	return level, nil
}

// Invalidate drops the cached level for a presentation.
func (c *Checker) Invalidate(documentID string) {
	c.cache.Delete(documentID)
}
