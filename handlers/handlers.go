// Package handlers is the HTTP surface over the conversion core: format
// detection, conversion, downloads, batch archives, OCR and session
// cleanup.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"fileconverter/archive"
	"fileconverter/capability"
	"fileconverter/config"
	"fileconverter/converter"
	"fileconverter/detect"
	"fileconverter/dto"
	"fileconverter/middleware"
	"fileconverter/service"
	"fileconverter/session"
)

type Handler struct {
	cfg       *config.Config
	fs        afero.Fs
	store     *session.Store
	detector  *detect.Detector
	matrix    *capability.Matrix
	converter *service.Converter
	archiver  *archive.Archiver
	sweeper   *session.Sweeper
	ocr       *converter.OCR
	logger    *zap.Logger
}

func New(
	cfg *config.Config,
	fs afero.Fs,
	store *session.Store,
	detector *detect.Detector,
	matrix *capability.Matrix,
	conv *service.Converter,
	archiver *archive.Archiver,
	sweeper *session.Sweeper,
	ocr *converter.OCR,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		cfg:       cfg,
		fs:        fs,
		store:     store,
		detector:  detector,
		matrix:    matrix,
		converter: conv,
		archiver:  archiver,
		sweeper:   sweeper,
		ocr:       ocr,
		logger:    logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/formats", h.Formats)
	mux.HandleFunc("POST /api/detect", h.Detect)
	mux.HandleFunc("POST /api/convert", h.Convert)
	mux.HandleFunc("GET /api/download/{session}/{filename}", h.Download)
	mux.HandleFunc("POST /api/download-batch", h.BatchDownload)
	mux.HandleFunc("POST /api/ocr", h.OCR)
	mux.HandleFunc("DELETE /api/cleanup/{session}", h.Cleanup)
	mux.HandleFunc("GET /api/cleanup/stats", h.CleanupStats)
	mux.HandleFunc("POST /api/cleanup/run", h.CleanupRun)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError maps core errors onto HTTP statuses. Caller errors
// (unrecognized format, illegal pair, traversal) come back 4xx; converter
// failures 500; missing optional collaborators 503.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := middleware.GetTraceID(r.Context())

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrPathTraversal),
		errors.Is(err, detect.ErrUnrecognizedFormat),
		errors.Is(err, service.ErrUnsupportedConversion),
		errors.Is(err, archive.ErrNoFilesFound):
		status = http.StatusBadRequest
	case errors.Is(err, converter.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= 500 {
		h.logger.Error("request failed",
			zap.String("trace_id", traceID),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	} else {
		h.logger.Warn("request rejected",
			zap.String("trace_id", traceID),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	h.respondJSON(w, status, dto.ErrorResponse{
		Success: false,
		Error:   err.Error(),
		TraceID: traceID,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	h.respondJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Success: false,
		Error:   msg,
		TraceID: middleware.GetTraceID(r.Context()),
	})
}
