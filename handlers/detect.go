package handlers

import (
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"fileconverter/detect"
	"fileconverter/dto"
	"fileconverter/middleware"
)

func (h *Handler) Formats(w http.ResponseWriter, r *http.Request) {
	formats := make(map[string][]string)
	for category, tags := range detect.SupportedFormats() {
		formats[string(category)] = tags
	}
	h.respondJSON(w, http.StatusOK, dto.FormatsResponse{
		Success: true,
		Formats: formats,
	})
}

// Detect accepts a multipart upload, stores it in a fresh session and
// reports the detected format plus the legal conversion targets.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.badRequest(w, r, "failed to parse upload form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.badRequest(w, r, "no file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.badRequest(w, r, "empty filename")
		return
	}

	sessionID, err := h.store.Create()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	filename, err := h.store.SaveUpload(sessionID, filepath.Base(header.Filename), file)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	path, err := h.store.ResolveUpload(sessionID, filename)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	desc, err := h.detector.Detect(path)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.logger.Info("file uploaded",
		zap.String("trace_id", middleware.GetTraceID(r.Context())),
		zap.String("session_id", sessionID),
		zap.String("filename", filename),
		zap.String("category", string(desc.Category)),
		zap.String("format", desc.Format),
	)

	h.respondJSON(w, http.StatusOK, dto.DetectResponse{
		Success:          true,
		SessionID:        sessionID,
		Filename:         filename,
		Category:         string(desc.Category),
		Format:           desc.Format,
		AvailableTargets: h.matrix.TargetsFor(desc.Category, desc.Format),
	})
}
