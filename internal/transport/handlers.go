package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/smorand/slides-content-api/internal/middleware"
	"github.com/smorand/slides-content-api/internal/planner"
	"github.com/smorand/slides-content-api/internal/service"
	"github.com/smorand/slides-content-api/internal/template"
	"github.com/smorand/slides-content-api/internal/usecase"
)

// SlidesService is the read and write surface the HTTP handlers call.
type SlidesService interface {
	Read(ctx context.Context, documentID string) (*service.ReadResult, error)
	Write(ctx context.Context, documentID string, useCases []usecase.UseCase) (*service.WriteResult, error)
	WriteCells(ctx context.Context, documentID string, writes []planner.CellText) (*service.WriteResult, error)
	Template() *template.Spec
}

// ReadRequest is the body of POST /slides/read.
type ReadRequest struct {
	DocumentID string `json:"document_id"`
}

// WriteRequest is the body of POST /slides/write.
type WriteRequest struct {
	DocumentID string            `json:"document_id"`
	UseCases   []usecase.UseCase `json:"use_cases"`
}

// WriteCellsRequest is the body of POST /slides/write/cells.
type WriteCellsRequest struct {
	DocumentID string             `json:"document_id"`
	Cells      []planner.CellText `json:"cells"`
}

// handleRoot handles GET /.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path, nil)
		return
	}
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Slides Content API",
		"version": s.config.Version,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// handleTemplate handles GET /template.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) || !s.requireService(w) {
		return
	}
	writeJSON(w, http.StatusOK, s.service.Template())
}

// handleRead handles POST /slides/read.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) || !s.requireService(w) {
		return
	}

	var req ReadRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.service.Read(r.Context(), req.DocumentID)
	if err != nil {
		s.fail(w, r, req.DocumentID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleWrite handles POST /slides/write.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) || !s.requireService(w) {
		return
	}

	var req WriteRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.service.Write(r.Context(), req.DocumentID, req.UseCases)
	if err != nil {
		s.fail(w, r, req.DocumentID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleWriteCells handles POST /slides/write/cells.
func (s *Server) handleWriteCells(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) || !s.requireService(w) {
		return
	}

	var req WriteCellsRequest
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.service.WriteCells(r.Context(), req.DocumentID, req.Cells)
	if err != nil {
		s.fail(w, r, req.DocumentID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// decode reads a JSON body into v, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		detail := fmt.Sprintf("invalid JSON body: %v", err)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			detail = fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)
		} else if errors.Is(err, io.EOF) {
			detail = "request body is empty"
		}
		writeError(w, http.StatusBadRequest, codeInvalidRequest, detail, nil)
		return false
	}
	return true
}

// requireService writes a 503 when no service is configured.
func (s *Server) requireService(w http.ResponseWriter) bool {
	if s.service == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "slides service not configured", nil)
		return false
	}
	return true
}

// fail maps err to a status and error body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, documentID string, err error) {
	resp := errorResponse(err)

	attrs := []any{
		slog.String("path", r.URL.Path),
		slog.String("document_id", documentID),
		slog.String("agent", middleware.GetAgent(r.Context())),
		slog.Any("error", err),
	}
	if resp.status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
	} else {
		s.logger.Warn("request rejected", attrs...)
	}

	writeError(w, resp.status, resp.code, err.Error(), resp.extra)
}

// allowMethod writes a 405 unless the request uses method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed", nil)
	return false
}
