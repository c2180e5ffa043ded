// Package service runs the read and write flows: fetch the presentation,
// locate empty template cells, then format, plan and write use cases.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/smorand/slides-content-api/internal/cells"
	"github.com/smorand/slides-content-api/internal/docstore"
	"github.com/smorand/slides-content-api/internal/document"
	"github.com/smorand/slides-content-api/internal/permissions"
	"github.com/smorand/slides-content-api/internal/planner"
	"github.com/smorand/slides-content-api/internal/template"
	"github.com/smorand/slides-content-api/internal/usecase"
)

// ErrInvalidInput is returned for requests that fail basic validation.
var ErrInvalidInput = errors.New("invalid input")

const documentURLPrefix = "https://docs.google.com/presentation/d/"

// PermissionChecker verifies access before touching a document.
type PermissionChecker interface {
	CheckRead(ctx context.Context, documentID string) error
	CheckWrite(ctx context.Context, documentID string) error
}

// ReadResult is the output of Read.
type ReadResult struct {
	DocumentID  string             `json:"document_id"`
	Title       string             `json:"title"`
	TotalSlides int                `json:"total_slides"`
	Slides      []document.Slide   `json:"slides"`
	EmptyCells  cells.EmptyCellMap `json:"empty_cells"`
}

// WriteResult is the output of Write and WriteCells.
type WriteResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	UseCasesWritten int    `json:"use_cases_written,omitempty"`
	CellsWritten    int    `json:"cells_written"`
	DocumentURL     string `json:"document_url"`
}

// PlanResult is the output of Plan.
type PlanResult struct {
	DocumentID  string                     `json:"document_id"`
	Assignments []document.WriteAssignment `json:"assignments"`
}

// Config holds service configuration.
type Config struct {
	Store       docstore.Store
	Template    *template.Spec
	Permissions PermissionChecker // Optional
	Logger      *slog.Logger
}

// Service orchestrates reads and writes.
type Service struct {
	store       docstore.Store
	spec        *template.Spec
	classifier  *cells.Classifier
	planner     *planner.Planner
	permissions PermissionChecker
	logger      *slog.Logger
}

// New creates a service.
func New(config Config) (*Service, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("%w: document store is required", ErrInvalidInput)
	}
	if config.Template == nil {
		config.Template = template.Default()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Service{
		store:       config.Store,
		spec:        config.Template,
		classifier:  cells.NewClassifier(config.Template),
		planner:     planner.New(planner.Config{Template: config.Template, Logger: config.Logger}),
		permissions: config.Permissions,
		logger:      config.Logger,
	}, nil
}

// Template returns the active template.
func (s *Service) Template() *template.Spec {
	return s.spec
}

// DocumentURL returns the browser URL of a presentation.
func DocumentURL(documentID string) string {
	return documentURLPrefix + documentID
}

// Read returns the slide tree and the empty cell map of a document.
func (s *Service) Read(ctx context.Context, documentID string) (*ReadResult, error) {
	documentID = strings.TrimSpace(documentID)
	doc, m, err := s.load(ctx, documentID, false)
	if err != nil {
		return nil, err
	}

	s.logger.Info("document read",
		slog.String("document_id", documentID),
		slog.Int("slides", len(doc.Slides)),
		slog.Int("slides_with_empty_cells", len(m)),
	)

	return &ReadResult{
		DocumentID:  documentID,
		Title:       doc.Title,
		TotalSlides: len(doc.Slides),
		Slides:      doc.Slides,
		EmptyCells:  m,
	}, nil
}

// Plan computes the assignments Write would send, without writing.
func (s *Service) Plan(ctx context.Context, documentID string, useCases []usecase.UseCase) (*PlanResult, error) {
	documentID = strings.TrimSpace(documentID)
	if len(useCases) == 0 {
		return nil, fmt.Errorf("%w: use_cases must not be empty", ErrInvalidInput)
	}

	doc, m, err := s.load(ctx, documentID, false)
	if err != nil {
		return nil, err
	}

	assignments, err := s.planner.Plan(useCases, m, doc.SlideIDs())
	if err != nil {
		return nil, err
	}
	return &PlanResult{DocumentID: documentID, Assignments: assignments}, nil
}

// Write formats the use cases into the next complete empty rows.
func (s *Service) Write(ctx context.Context, documentID string, useCases []usecase.UseCase) (*WriteResult, error) {
	documentID = strings.TrimSpace(documentID)
	if len(useCases) == 0 {
		return nil, fmt.Errorf("%w: use_cases must not be empty", ErrInvalidInput)
	}

	doc, m, err := s.load(ctx, documentID, true)
	if err != nil {
		return nil, err
	}

	assignments, err := s.planner.Plan(useCases, m, doc.SlideIDs())
	if err != nil {
		return nil, err
	}

	if err := s.store.BatchWriteText(ctx, documentID, assignments); err != nil {
		return nil, err
	}

	s.logger.Info("use cases written",
		slog.String("document_id", documentID),
		slog.Int("use_cases", len(useCases)),
		slog.Int("cells", len(assignments)),
	)

	return &WriteResult{
		Success:         true,
		Message:         fmt.Sprintf("Successfully wrote %d use cases", len(useCases)),
		UseCasesWritten: len(useCases),
		CellsWritten:    len(assignments),
		DocumentURL:     DocumentURL(documentID),
	}, nil
}

// WriteCells writes raw text into explicitly named empty cells.
func (s *Service) WriteCells(ctx context.Context, documentID string, writes []planner.CellText) (*WriteResult, error) {
	documentID = strings.TrimSpace(documentID)
	if len(writes) == 0 {
		return nil, fmt.Errorf("%w: cells must not be empty", ErrInvalidInput)
	}

	_, m, err := s.load(ctx, documentID, true)
	if err != nil {
		return nil, err
	}

	assignments, err := s.planner.PlanCells(writes, m)
	if err != nil {
		return nil, err
	}

	if err := s.store.BatchWriteText(ctx, documentID, assignments); err != nil {
		return nil, err
	}

	s.logger.Info("cells written",
		slog.String("document_id", documentID),
		slog.Int("cells", len(assignments)),
	)

	return &WriteResult{
		Success:      true,
		Message:      fmt.Sprintf("Successfully wrote %d cells", len(assignments)),
		CellsWritten: len(assignments),
		DocumentURL:  DocumentURL(documentID),
	}, nil
}

// load checks access, reads the document and classifies its cells.
func (s *Service) load(ctx context.Context, documentID string, write bool) (*document.Document, cells.EmptyCellMap, error) {
	if documentID == "" {
		return nil, nil, fmt.Errorf("%w: document_id is required", ErrInvalidInput)
	}

	if s.permissions != nil {
		check := s.permissions.CheckRead
		if write {
			check = s.permissions.CheckWrite
		}
		if err := check(ctx, documentID); err != nil {
			return nil, nil, permissionError(err)
		}
	}

	doc, err := s.store.ReadTree(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	return doc, s.classifier.Classify(doc), nil
}

// permissionError maps a pre-check failure onto the document store taxonomy.
func permissionError(err error) error {
	switch {
	case errors.Is(err, permissions.ErrFileNotFound):
		return fmt.Errorf("%w: %v", docstore.ErrDocumentNotFound, err)
	case errors.Is(err, permissions.ErrNoReadPermission),
		errors.Is(err, permissions.ErrNoWritePermission):
		return fmt.Errorf("%w: %v", docstore.ErrDocumentAccessDenied, err)
	case errors.Is(err, permissions.ErrNotPresentation):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	default:
		return fmt.Errorf("%w: %v", docstore.ErrDocumentStoreUnavailable, err)
	}
}
