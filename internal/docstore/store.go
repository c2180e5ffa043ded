// Package docstore reads presentation trees from Google Slides and writes
// planned cell text back in batches.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/slides/v1"

	"github.com/smorand/slides-content-api/internal/document"
	"github.com/smorand/slides-content-api/internal/retry"
	"github.com/smorand/slides-content-api/internal/template"
)

// Sentinel errors for the document store.
var (
	ErrDocumentNotFound         = errors.New("document not found")
	ErrDocumentAccessDenied     = errors.New("document access denied")
	ErrDocumentStoreUnavailable = errors.New("document store unavailable")
	ErrPartialFailure           = errors.New("partial write failure")
)

// DefaultMaxAssignmentsPerBatch is the number of cell writes per batchUpdate.
const DefaultMaxAssignmentsPerBatch = 50

// PartialFailureError reports a write where earlier batches were applied
// and later ones were not. Nothing is rolled back.
type PartialFailureError struct {
	FailedObjectIDs []string
	Written         int
	Err             error
}

// Error returns the error message.
func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s: %d cells written, %d not written: %v",
		ErrPartialFailure, e.Written, len(e.FailedObjectIDs), e.Err)
}

// Is matches ErrPartialFailure.
func (e *PartialFailureError) Is(target error) bool {
	return target == ErrPartialFailure
}

// Unwrap returns the batch error.
func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

// Store reads document trees and writes text into cells.
type Store interface {
	ReadTree(ctx context.Context, documentID string) (*document.Document, error)
	BatchWriteText(ctx context.Context, documentID string, assignments []document.WriteAssignment) error
}

// Config holds Document Store configuration.
type Config struct {
	MaxAssignmentsPerBatch int
	Style                  template.Style
	// Retryer wraps reads.
	Retryer *retry.Retryer
	// WriteRetryer wraps batchUpdate. insertText is not idempotent, so the
	// default only retries rejections that applied nothing (429).
	WriteRetryer   *retry.Retryer
	ServiceFactory SlidesServiceFactory
	Logger         *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxAssignmentsPerBatch: DefaultMaxAssignmentsPerBatch,
		Style:                  template.Default().Style,
		Logger:                 slog.Default(),
	}
}

// Client is the Google Slides implementation of Store.
type Client struct {
	config  Config
	service SlidesService
}

// New creates a client authenticated by tokenSource.
func New(ctx context.Context, config Config, tokenSource oauth2.TokenSource) (*Client, error) {
	if config.MaxAssignmentsPerBatch <= 0 {
		config.MaxAssignmentsPerBatch = DefaultMaxAssignmentsPerBatch
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Retryer == nil {
		config.Retryer = retry.New(retry.Config{Logger: config.Logger})
	}
	if config.WriteRetryer == nil {
		config.WriteRetryer = NewWriteRetryer(retry.Config{Logger: config.Logger})
	}
	if config.ServiceFactory == nil {
		config.ServiceFactory = NewRealSlidesServiceFactory()
	}

	service, err := config.ServiceFactory(ctx, tokenSource)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create slides service: %v", ErrDocumentStoreUnavailable, err)
	}
	return &Client{config: config, service: service}, nil
}

// ReadTree fetches a presentation and walks it into a Document.
func (c *Client) ReadTree(ctx context.Context, documentID string) (*document.Document, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document_id is required", ErrDocumentNotFound)
	}

	presentation, err := retry.DoWithResult(ctx, c.config.Retryer, "get_presentation",
		func(ctx context.Context) (*slides.Presentation, error) {
			return c.service.GetPresentation(ctx, documentID)
		})
	if err != nil {
		c.config.Logger.Warn("failed to read presentation",
			slog.String("document_id", documentID),
			slog.Any("error", err),
		)
		return nil, classifyError(err)
	}

	doc := document.FromPresentation(documentID, presentation)
	c.config.Logger.Debug("presentation read",
		slog.String("document_id", documentID),
		slog.Int("slides", len(doc.Slides)),
	)
	return doc, nil
}

// BatchWriteText writes every assignment. Each chunk of
// MaxAssignmentsPerBatch assignments is applied atomically; a failure after
// an applied chunk is a PartialFailureError listing the unwritten cells.
func (c *Client) BatchWriteText(ctx context.Context, documentID string, assignments []document.WriteAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	if documentID == "" {
		return fmt.Errorf("%w: document_id is required", ErrDocumentNotFound)
	}

	size := c.config.MaxAssignmentsPerBatch
	written := 0
	for start := 0; start < len(assignments); start += size {
		end := min(start+size, len(assignments))
		chunk := assignments[start:end]

		var requests []*slides.Request
		for _, a := range chunk {
			requests = append(requests, buildWriteRequests(a, c.config.Style)...)
		}

		err := c.config.WriteRetryer.Do(ctx, "batch_update", func(ctx context.Context) error {
			_, err := c.service.BatchUpdate(ctx, documentID, requests)
			return err
		})
		if err != nil {
			c.config.Logger.Error("batch write failed",
				slog.String("document_id", documentID),
				slog.Int("written", written),
				slog.Int("remaining", len(assignments)-written),
				slog.Any("error", err),
			)
			if written == 0 {
				return classifyError(err)
			}
			failed := make([]string, 0, len(assignments)-written)
			for _, a := range assignments[start:] {
				failed = append(failed, a.ObjectID)
			}
			return &PartialFailureError{
				FailedObjectIDs: failed,
				Written:         written,
				Err:             classifyError(err),
			}
		}
		written += len(chunk)
	}

	c.config.Logger.Info("cells written",
		slog.String("document_id", documentID),
		slog.Int("cells", written),
	)
	return nil
}

// NewWriteRetryer returns a retryer for batchUpdate. Only 429 responses are
// retried. A transport error or a 5xx leaves it unknown whether the batch was
// applied, and a replay would insert the text twice.
func NewWriteRetryer(config retry.Config) *retry.Retryer {
	config.RetryableStatusCodes = []int{http.StatusTooManyRequests}
	config.StatusOf = apiStatus
	return retry.New(config)
}

// apiStatus returns the status of a Google API response error, or 0.
func apiStatus(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// classifyError maps a Slides API failure onto the store's error taxonomy.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrDocumentStoreUnavailable, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %v", ErrDocumentNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrDocumentAccessDenied, err)
		default:
			return fmt.Errorf("%w: %v", ErrDocumentStoreUnavailable, err)
		}
	}

	if isNotFoundError(err) {
		return fmt.Errorf("%w: %v", ErrDocumentNotFound, err)
	}
	if isForbiddenError(err) {
		return fmt.Errorf("%w: %v", ErrDocumentAccessDenied, err)
	}
	return fmt.Errorf("%w: %v", ErrDocumentStoreUnavailable, err)
}

// isNotFoundError checks error text for errors that lost their status code.
func isNotFoundError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "404") ||
		strings.Contains(errStr, "notFound") ||
		strings.Contains(errStr, "not found")
}

// isForbiddenError checks error text for errors that lost their status code.
func isForbiddenError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "access denied") ||
		strings.Contains(errStr, "permission denied")
}
