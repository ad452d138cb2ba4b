// Package session manages per-session working directories: an upload area
// for client inputs and an output area for conversion results. Session
// state is derived entirely from the filesystem layout; there is no
// database record behind it.
package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var (
	// ErrNotFound means the referenced session or file is absent. Callers
	// may observe this mid-operation when a retention sweep wins a race
	// against an in-flight request; it is retryable by re-upload, not a bug.
	ErrNotFound = errors.New("session or file not found")

	// ErrPathTraversal means a filename or session id would escape the
	// session's own directory tree.
	ErrPathTraversal = errors.New("path escapes session directory")
)

// Store owns the lifecycle of session directories. No other component
// creates or deletes them directly.
type Store struct {
	fs        afero.Fs
	uploadDir string
	outputDir string
	logger    *zap.Logger
}

// Stats aggregates counts and byte sizes of current sessions, split
// between the upload and output areas.
type Stats struct {
	UploadSessions int   `json:"upload_sessions"`
	UploadBytes    int64 `json:"upload_bytes"`
	OutputSessions int   `json:"output_sessions"`
	OutputBytes    int64 `json:"output_bytes"`
	TotalSessions  int   `json:"total_sessions"`
	TotalBytes     int64 `json:"total_bytes"`
}

// Info describes one session for enumeration by the retention sweeper.
type Info struct {
	ID           string
	LastModified time.Time
	Bytes        int64
}

func NewStore(fs afero.Fs, uploadDir, outputDir string, logger *zap.Logger) (*Store, error) {
	for _, dir := range []string{uploadDir, outputDir} {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Store{fs: fs, uploadDir: uploadDir, outputDir: outputDir, logger: logger}, nil
}

// Create allocates a fresh session identifier and both of its directories.
// Identifiers come from a cryptographically strong random source, so two
// concurrent creations never collide.
func (s *Store) Create() (string, error) {
	id := uuid.New().String()
	for _, root := range []string{s.uploadDir, s.outputDir} {
		if err := s.fs.MkdirAll(filepath.Join(root, id), 0o755); err != nil {
			return "", fmt.Errorf("create session %s: %w", id, err)
		}
	}
	return id, nil
}

// ResolveUpload returns the confined path of filename inside the session's
// upload area.
func (s *Store) ResolveUpload(id, filename string) (string, error) {
	return s.resolve(s.uploadDir, id, filename)
}

// ResolveOutput returns the confined path of filename inside the session's
// output area.
func (s *Store) ResolveOutput(id, filename string) (string, error) {
	return s.resolve(s.outputDir, id, filename)
}

func (s *Store) resolve(root, id, filename string) (string, error) {
	cleanID, err := sanitizeName(id)
	if err != nil {
		return "", fmt.Errorf("session id %q: %w", id, err)
	}
	cleanName, err := sanitizeName(filename)
	if err != nil {
		return "", fmt.Errorf("filename %q: %w", filename, err)
	}
	return filepath.Join(root, cleanID, cleanName), nil
}

// sanitizeName accepts only a single clean path element. Anything that
// would resolve outside the session directory is rejected rather than
// silently rewritten.
func sanitizeName(name string) (string, error) {
	if name == "" {
		return "", ErrPathTraversal
	}
	clean := filepath.Clean(name)
	if clean != filepath.Base(clean) || clean == "." || clean == ".." || filepath.IsAbs(clean) {
		return "", ErrPathTraversal
	}
	return clean, nil
}

// SaveUpload writes an uploaded file into the session's upload area and
// returns the stored (sanitized) filename.
func (s *Store) SaveUpload(id, filename string, r io.Reader) (string, error) {
	path, err := s.ResolveUpload(id, filename)
	if err != nil {
		return "", err
	}
	f, err := s.fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return filepath.Base(path), nil
}

// Delete removes both of a session's directories. It is idempotent: a
// missing session is a successful no-op.
func (s *Store) Delete(id string) error {
	if _, err := sanitizeName(id); err != nil {
		return fmt.Errorf("session id %q: %w", id, err)
	}
	for _, root := range []string{s.uploadDir, s.outputDir} {
		if err := s.fs.RemoveAll(filepath.Join(root, id)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete session %s: %w", id, err)
		}
	}
	s.logger.Debug("session deleted", zap.String("session_id", id))
	return nil
}

// List enumerates current sessions across both areas. A session's
// LastModified is the newer of its two directory mtimes, so activity in
// either area keeps it alive.
func (s *Store) List() ([]Info, error) {
	byID := make(map[string]*Info)
	for _, root := range []string{s.uploadDir, s.outputDir} {
		entries, err := afero.ReadDir(s.fs, root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("list %s: %w", root, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			size := s.dirSize(filepath.Join(root, e.Name()))
			info, ok := byID[e.Name()]
			if !ok {
				byID[e.Name()] = &Info{ID: e.Name(), LastModified: e.ModTime(), Bytes: size}
				continue
			}
			info.Bytes += size
			if e.ModTime().After(info.LastModified) {
				info.LastModified = e.ModTime()
			}
		}
	}
	out := make([]Info, 0, len(byID))
	for _, info := range byID {
		out = append(out, *info)
	}
	return out, nil
}

// Stats returns aggregate session counts and byte sizes per area.
func (s *Store) Stats() (Stats, error) {
	var stats Stats
	fill := func(root string, count *int, bytes *int64) error {
		entries, err := afero.ReadDir(s.fs, root)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("stat %s: %w", root, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			*count++
			*bytes += s.dirSize(filepath.Join(root, e.Name()))
		}
		return nil
	}
	if err := fill(s.uploadDir, &stats.UploadSessions, &stats.UploadBytes); err != nil {
		return Stats{}, err
	}
	if err := fill(s.outputDir, &stats.OutputSessions, &stats.OutputBytes); err != nil {
		return Stats{}, err
	}
	stats.TotalSessions = stats.UploadSessions + stats.OutputSessions
	stats.TotalBytes = stats.UploadBytes + stats.OutputBytes
	return stats, nil
}

// dirSize sums file sizes under dir. A directory vanishing mid-walk (a
// concurrent delete) simply contributes nothing.
func (s *Store) dirSize(dir string) int64 {
	var size int64
	_ = afero.Walk(s.fs, dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

// Fs exposes the store's filesystem for callers that stream session files.
func (s *Store) Fs() afero.Fs {
	return s.fs
}
