package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"fileconverter/converter"
	"fileconverter/detect"
	"fileconverter/dto"
	"fileconverter/service"
	"fileconverter/session"
)

// Convert runs one conversion job against an existing session. Unknown
// option keys are rejected rather than silently ignored.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req dto.ConvertRequest
	if err := dec.Decode(&req); err != nil {
		h.badRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	if req.SessionID == "" || req.Filename == "" || req.TargetFormat == "" {
		h.badRequest(w, r, "session_id, filename and target_format are required")
		return
	}

	var opts converter.Options
	if req.Options != nil {
		opts = converter.Options{
			Quality:   req.Options.Quality,
			MaxWidth:  req.Options.MaxWidth,
			MaxHeight: req.Options.MaxHeight,
		}
	}

	outputName, err := h.converter.Convert(r.Context(), service.Job{
		SessionID:    req.SessionID,
		Filename:     req.Filename,
		TargetFormat: req.TargetFormat,
		Options:      opts,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.ConvertResponse{
		Success:        true,
		OutputFilename: outputName,
		DownloadURL:    fmt.Sprintf("/api/download/%s/%s", req.SessionID, outputName),
	})
}

// OCR extracts text from an uploaded image or PDF. The route reports 503
// when the OCR collaborator is not installed.
func (h *Handler) OCR(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req dto.OCRRequest
	if err := dec.Decode(&req); err != nil {
		h.badRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	if req.SessionID == "" || req.Filename == "" {
		h.badRequest(w, r, "session_id and filename are required")
		return
	}

	if !h.ocr.Available() {
		h.respondError(w, r, fmt.Errorf("%w: OCR is not installed on this server", converter.ErrUnavailable))
		return
	}

	path, err := h.store.ResolveUpload(req.SessionID, req.Filename)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if _, err := h.fs.Stat(path); err != nil {
		h.respondError(w, r, fmt.Errorf("%w: %s/%s", session.ErrNotFound, req.SessionID, req.Filename))
		return
	}

	desc, err := h.detector.Detect(path)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var kind converter.SourceKind
	switch {
	case desc.Category == detect.CategoryImage:
		kind = converter.SourceImage
	case desc.Format == "pdf":
		kind = converter.SourcePDF
	default:
		h.badRequest(w, r, "OCR supports images and PDFs only")
		return
	}

	text, err := h.ocr.ExtractText(r.Context(), path, kind, req.Language)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.OCRResponse{
		Success: true,
		Text:    text,
	})
}
