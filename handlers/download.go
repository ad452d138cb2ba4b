package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"fileconverter/archive"
	"fileconverter/dto"
	"fileconverter/middleware"
	"fileconverter/session"
)

// Download streams one converted file from a session's output area.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	filename := r.PathValue("filename")

	path, err := h.store.ResolveOutput(sessionID, filename)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	f, err := h.fs.Open(path)
	if err != nil {
		h.respondError(w, r, fmt.Errorf("%w: %s/%s", session.ErrNotFound, sessionID, filename))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeContent(w, r, filename, info.ModTime(), f)
}

// BatchDownload bundles converted output files, possibly spanning
// sessions, into one zip. Missing entries are skipped and counted in the
// X-Missing-Files header; only zero resolvable entries is an error. The
// archive is deleted after a grace delay once served.
func (h *Handler) BatchDownload(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req dto.BatchRequest
	if err := dec.Decode(&req); err != nil {
		h.badRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	if len(req.Files) == 0 {
		h.badRequest(w, r, "no files requested")
		return
	}

	entries := make([]archive.Entry, 0, len(req.Files))
	for _, f := range req.Files {
		entries = append(entries, archive.Entry{SessionID: f.SessionID, Filename: f.Filename})
	}

	result, err := h.archiver.Build(entries)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	defer h.archiver.ScheduleRemoval(result.Path)

	if len(result.Missing) > 0 {
		h.logger.Warn("batch download skipped missing files",
			zap.String("trace_id", middleware.GetTraceID(r.Context())),
			zap.Int("missing", len(result.Missing)),
		)
	}

	f, err := h.fs.Open(result.Path)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Name))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("X-Missing-Files", strconv.Itoa(len(result.Missing)))
	io.Copy(w, f)
}
