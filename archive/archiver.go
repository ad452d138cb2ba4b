// Package archive bundles converted output files, possibly from different
// sessions, into a single downloadable zip.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"fileconverter/session"
)

// ErrNoFilesFound means not a single requested entry could be resolved.
// Partial success (some entries missing) is not an error.
var ErrNoFilesFound = errors.New("no files found to archive")

// Entry names one output file to bundle.
type Entry struct {
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
}

// Result describes a built archive.
type Result struct {
	Path     string
	Name     string
	Archived []string
	Missing  []Entry
}

// Archiver builds uniquely named archives outside any session directory
// and schedules their deletion once served.
type Archiver struct {
	fs     afero.Fs
	store  *session.Store
	dir    string
	grace  time.Duration
	logger *zap.Logger
}

func NewArchiver(fs afero.Fs, store *session.Store, dir string, grace time.Duration, logger *zap.Logger) (*Archiver, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	return &Archiver{fs: fs, store: store, dir: dir, grace: grace, logger: logger}, nil
}

// Build resolves each entry inside its session's output area and writes
// the ones that exist into a fresh zip. Entries that cannot be resolved
// are reported in Result.Missing; only zero resolvable entries is a
// failure. The archive name carries a random id so concurrent requests
// never collide.
func (a *Archiver) Build(entries []Entry) (*Result, error) {
	name := fmt.Sprintf("converted_%s.zip", uuid.New().String())
	path := filepath.Join(a.dir, name)

	f, err := a.fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}

	result := &Result{Path: path, Name: name}
	zw := zip.NewWriter(f)
	used := make(map[string]bool)

	for _, entry := range entries {
		src, err := a.store.ResolveOutput(entry.SessionID, entry.Filename)
		if err != nil {
			result.Missing = append(result.Missing, entry)
			continue
		}
		if err := a.addFile(zw, src, entry, used, result); err != nil {
			zw.Close()
			f.Close()
			_ = a.fs.Remove(path)
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		f.Close()
		_ = a.fs.Remove(path)
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = a.fs.Remove(path)
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	if len(result.Archived) == 0 {
		_ = a.fs.Remove(path)
		return nil, ErrNoFilesFound
	}
	return result, nil
}

func (a *Archiver) addFile(zw *zip.Writer, src string, entry Entry, used map[string]bool, result *Result) error {
	in, err := a.fs.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			result.Missing = append(result.Missing, entry)
			return nil
		}
		return fmt.Errorf("open %s: %w", entry.Filename, err)
	}
	defer in.Close()

	// Two sessions may both contribute an "output.pdf"; disambiguate with
	// a short session prefix instead of overwriting.
	name := filepath.Base(src)
	if used[name] {
		prefix := entry.SessionID
		if len(prefix) > 8 {
			prefix = prefix[:8]
		}
		name = prefix + "_" + name
	}
	used[name] = true

	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	result.Archived = append(result.Archived, name)
	return nil
}

// ScheduleRemoval deletes the archive after the grace delay. The delay
// gives a slow client time to finish the transfer; if deletion still
// races the download, losing the race only logs. Failures never reach
// the client.
func (a *Archiver) ScheduleRemoval(path string) {
	time.AfterFunc(a.grace, func() {
		if err := a.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			a.logger.Warn("failed to remove served archive",
				zap.String("path", path),
				zap.Error(err),
			)
		}
	})
}
