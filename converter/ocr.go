package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// SourceKind tells the OCR converter how to read its input.
type SourceKind string

const (
	SourceImage SourceKind = "image"
	SourcePDF   SourceKind = "pdf"
)

// OCR extracts text from images and PDFs with Tesseract. It is an
// optional collaborator: when the binary is missing, Available reports
// false and every call fails with ErrUnavailable instead of crashing.
type OCR struct {
	logger    *zap.Logger
	tesseract string
	pdftoppm  string
}

func NewOCR(logger *zap.Logger, tesseractOverride, pdftoppmOverride string) *OCR {
	return &OCR{
		logger:    logger,
		tesseract: lookPath(tesseractOverride, "tesseract"),
		pdftoppm:  lookPath(pdftoppmOverride, "pdftoppm"),
	}
}

// Available is resolved once at startup and checked before routing any
// OCR request.
func (o *OCR) Available() bool {
	return o.tesseract != ""
}

// ExtractText runs OCR over an image or over every page of a PDF. Pages
// of a multi-page PDF are joined with page markers.
func (o *OCR) ExtractText(ctx context.Context, inputPath string, kind SourceKind, lang string) (string, error) {
	if !o.Available() {
		return "", fmt.Errorf("%w: tesseract", ErrUnavailable)
	}
	if lang == "" {
		lang = "eng"
	}

	switch kind {
	case SourceImage:
		return o.ocrImage(ctx, inputPath, lang)
	case SourcePDF:
		return o.ocrPDF(ctx, inputPath, lang)
	}
	return "", fmt.Errorf("unsupported OCR source kind %q", kind)
}

func (o *OCR) ocrImage(ctx context.Context, path, lang string) (string, error) {
	// "stdout" makes tesseract print the recognized text instead of
	// writing a sidecar file.
	return runEngine(ctx, o.logger, o.tesseract, path, "stdout", "-l", lang)
}

func (o *OCR) ocrPDF(ctx context.Context, path, lang string) (string, error) {
	if o.pdftoppm == "" {
		return "", fmt.Errorf("%w: pdftoppm is required for PDF OCR", ErrUnavailable)
	}
	scratch, err := os.MkdirTemp("", "ocr-")
	if err != nil {
		return "", fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	prefix := filepath.Join(scratch, "page")
	if _, err := runEngine(ctx, o.logger, o.pdftoppm, "-png", "-r", "300", path, prefix); err != nil {
		return "", err
	}

	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(pages) == 0 {
		return "", fmt.Errorf("pdf rendered no pages")
	}
	sort.Strings(pages)

	var b strings.Builder
	for i, page := range pages {
		text, err := o.ocrImage(ctx, page, lang)
		if err != nil {
			return "", err
		}
		if len(pages) > 1 {
			fmt.Fprintf(&b, "=== Page %d ===\n\n", i+1)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}
