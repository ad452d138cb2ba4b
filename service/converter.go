// Package service orchestrates a single conversion: resolve the input,
// re-detect its format, validate the pair against the capability matrix,
// and dispatch to the right converter.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"fileconverter/capability"
	"fileconverter/converter"
	"fileconverter/detect"
	"fileconverter/pool"
	"fileconverter/session"
)

var (
	// ErrUnsupportedConversion means both formats are known but the pair
	// has no capability matrix entry. A caller error, never retried.
	ErrUnsupportedConversion = errors.New("unsupported conversion")

	// ErrConversionFailed wraps a converter collaborator failure. The
	// original cause travels in the error chain for diagnostics.
	ErrConversionFailed = errors.New("conversion failed")
)

// FileConverter is the collaborator contract for one format category.
// Implementations write only to outputPath and are responsible for
// clamping or defaulting the options.
type FileConverter interface {
	Convert(ctx context.Context, inputPath, outputPath, targetFormat string, opts converter.Options) error
}

// Job is one conversion request. It lives only for the duration of a
// single Convert call.
type Job struct {
	SessionID    string
	Filename     string
	TargetFormat string
	Options      converter.Options
}

type Converter struct {
	fs       afero.Fs
	store    *session.Store
	detector *detect.Detector
	matrix   *capability.Matrix
	image    FileConverter
	document FileConverter
	limiter  *pool.Limiter
	logger   *zap.Logger
}

func NewConverter(
	fs afero.Fs,
	store *session.Store,
	detector *detect.Detector,
	matrix *capability.Matrix,
	image, document FileConverter,
	limiter *pool.Limiter,
	logger *zap.Logger,
) *Converter {
	return &Converter{
		fs:       fs,
		store:    store,
		detector: detector,
		matrix:   matrix,
		image:    image,
		document: document,
		limiter:  limiter,
		logger:   logger,
	}
}

// Convert runs one conversion job and returns the output filename inside
// the session's output area. On success exactly one new file appears
// there; on failure nothing does — output is written under a temporary
// name and renamed only once the converter succeeded.
func (c *Converter) Convert(ctx context.Context, job Job) (string, error) {
	inputPath, err := c.store.ResolveUpload(job.SessionID, job.Filename)
	if err != nil {
		return "", err
	}
	if _, err := c.fs.Stat(inputPath); err != nil {
		return "", fmt.Errorf("%w: %s/%s", session.ErrNotFound, job.SessionID, job.Filename)
	}

	// Never trust the client's format label: route on what the bytes say.
	desc, err := c.detector.Detect(inputPath)
	if err != nil {
		return "", err
	}

	target := strings.ToLower(job.TargetFormat)
	if !detect.IsSupported(target) || !c.matrix.Supports(desc.Category, desc.Format, target) {
		return "", fmt.Errorf("%w: %s -> %s", ErrUnsupportedConversion, desc.Format, target)
	}

	stem := strings.TrimSuffix(job.Filename, filepath.Ext(job.Filename))
	outputName := stem + "." + target
	outputPath, err := c.store.ResolveOutput(job.SessionID, outputName)
	if err != nil {
		return "", err
	}
	if err := c.fs.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("output area: %w", err)
	}

	// The temporary name keeps the target extension because several
	// encoders pick their output format from it.
	partial := strings.TrimSuffix(outputPath, "."+target) + ".partial." + target
	if desc.Format == target {
		err = c.copyVerbatim(inputPath, partial)
	} else {
		err = c.dispatch(ctx, desc.Category, inputPath, partial, target, job.Options)
	}
	if err != nil {
		_ = c.fs.Remove(partial)
		return "", err
	}

	if err := c.fs.Rename(partial, outputPath); err != nil {
		_ = c.fs.Remove(partial)
		return "", fmt.Errorf("publish output: %w", err)
	}

	c.logger.Info("conversion completed",
		zap.String("session_id", job.SessionID),
		zap.String("input", job.Filename),
		zap.String("output", outputName),
		zap.String("source_format", desc.Format),
		zap.String("target_format", target),
	)
	return outputName, nil
}

func (c *Converter) dispatch(ctx context.Context, category detect.Category, in, out, target string, opts converter.Options) error {
	if err := c.limiter.Acquire(ctx); err != nil {
		return err
	}
	defer c.limiter.Release()

	var conv FileConverter
	switch category {
	case detect.CategoryImage:
		conv = c.image
	case detect.CategoryDocument:
		conv = c.document
	default:
		return fmt.Errorf("%w: no converter for category %s", ErrUnsupportedConversion, category)
	}

	if err := conv.Convert(ctx, in, out, target, opts); err != nil {
		return fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	return nil
}

// copyVerbatim is the same-format conversion: a byte-identical copy.
func (c *Converter) copyVerbatim(src, dst string) error {
	in, err := c.fs.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	defer in.Close()
	out, err := c.fs.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	return nil
}
