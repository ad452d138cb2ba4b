// Package dto holds the request and response shapes of the HTTP API.
// Every response carries a success flag; failures always come back as an
// ErrorResponse so a caller can never mistake a failed conversion for a
// produced file.
package dto

type DetectResponse struct {
	Success          bool     `json:"success"`
	SessionID        string   `json:"session_id"`
	Filename         string   `json:"filename"`
	Category         string   `json:"category"`
	Format           string   `json:"format"`
	AvailableTargets []string `json:"available_targets"`
}

type FormatsResponse struct {
	Success bool                `json:"success"`
	Formats map[string][]string `json:"formats"`
}

// ConvertOptions are the recognized optional parameters. Unknown keys in
// the request body are rejected, not silently ignored.
type ConvertOptions struct {
	Quality   int `json:"quality,omitempty"`
	MaxWidth  int `json:"max_width,omitempty"`
	MaxHeight int `json:"max_height,omitempty"`
}

type ConvertRequest struct {
	SessionID    string          `json:"session_id"`
	Filename     string          `json:"filename"`
	TargetFormat string          `json:"target_format"`
	Options      *ConvertOptions `json:"options,omitempty"`
}

type ConvertResponse struct {
	Success        bool   `json:"success"`
	OutputFilename string `json:"output_filename"`
	DownloadURL    string `json:"download_url"`
}

type BatchEntry struct {
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
}

type BatchRequest struct {
	Files []BatchEntry `json:"files"`
}

type OCRRequest struct {
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
	Language  string `json:"language,omitempty"`
}

type OCRResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

type CleanupResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type StatsResponse struct {
	Success        bool  `json:"success"`
	UploadSessions int   `json:"upload_sessions"`
	UploadBytes    int64 `json:"upload_bytes"`
	OutputSessions int   `json:"output_sessions"`
	OutputBytes    int64 `json:"output_bytes"`
	TotalSessions  int   `json:"total_sessions"`
	TotalBytes     int64 `json:"total_bytes"`
}

type SweepResponse struct {
	Success         bool     `json:"success"`
	SessionsRemoved int      `json:"sessions_removed"`
	BytesFreed      int64    `json:"bytes_freed"`
	Errors          []string `json:"errors,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}
