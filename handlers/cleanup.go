package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"fileconverter/dto"
	"fileconverter/middleware"
)

// Cleanup removes one session explicitly. Deleting an absent session is
// still a success.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")

	if err := h.store.Delete(sessionID); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.logger.Info("session cleaned up",
		zap.String("trace_id", middleware.GetTraceID(r.Context())),
		zap.String("session_id", sessionID),
	)

	h.respondJSON(w, http.StatusOK, dto.CleanupResponse{
		Success: true,
		Message: "session cleaned up",
	})
}

func (h *Handler) CleanupStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats()
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.StatsResponse{
		Success:        true,
		UploadSessions: stats.UploadSessions,
		UploadBytes:    stats.UploadBytes,
		OutputSessions: stats.OutputSessions,
		OutputBytes:    stats.OutputBytes,
		TotalSessions:  stats.TotalSessions,
		TotalBytes:     stats.TotalBytes,
	})
}

// CleanupRun triggers one retention sweep on demand and reports its
// statistics.
func (h *Handler) CleanupRun(w http.ResponseWriter, r *http.Request) {
	stats := h.sweeper.Run()

	h.respondJSON(w, http.StatusOK, dto.SweepResponse{
		Success:         true,
		SessionsRemoved: stats.SessionsRemoved,
		BytesFreed:      stats.BytesFreed,
		Errors:          stats.Errors,
	})
}
