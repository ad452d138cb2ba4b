package detect

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrUnrecognizedFormat means neither content sniffing nor the file
// extension matched a supported format.
var ErrUnrecognizedFormat = errors.New("unrecognized file format")

type Category string

const (
	CategoryImage    Category = "image"
	CategoryDocument Category = "document"
)

// Descriptor classifies a file as a (category, format) pair.
type Descriptor struct {
	Category Category
	Format   string
}

// formatCategories is the supported set. Every format tag belongs to
// exactly one category.
var formatCategories = map[string]Category{
	"pdf":  CategoryDocument,
	"docx": CategoryDocument,
	"xlsx": CategoryDocument,
	"xlsm": CategoryDocument,
	"txt":  CategoryDocument,
	"md":   CategoryDocument,
	"csv":  CategoryDocument,

	"png":  CategoryImage,
	"jpg":  CategoryImage,
	"jpeg": CategoryImage,
	"bmp":  CategoryImage,
	"tiff": CategoryImage,
	"gif":  CategoryImage,
	"webp": CategoryImage,
	"ico":  CategoryImage,
}

// mimeFormats maps sniffed MIME types to format tags. Plain-text formats
// (txt, md, csv) are deliberately absent: their content all sniffs as the
// text/* family, so they are resolved by extension instead.
var mimeFormats = map[string]string{
	"application/pdf": "pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       "xlsx",

	"image/png":                "png",
	"image/jpeg":               "jpg",
	"image/bmp":                "bmp",
	"image/tiff":               "tiff",
	"image/gif":                "gif",
	"image/webp":               "webp",
	"image/x-icon":             "ico",
	"image/vnd.microsoft.icon": "ico",
}

// Detector classifies files by magic bytes with an extension fallback.
type Detector struct {
	fs     afero.Fs
	logger *zap.Logger
}

func NewDetector(fs afero.Fs, logger *zap.Logger) *Detector {
	return &Detector{fs: fs, logger: logger}
}

// Detect returns the (category, format) pair for the file at path.
// Content-based detection takes priority over the extension, so a renamed
// file is classified by what it actually contains. The file is never
// modified.
func (d *Detector) Detect(path string) (Descriptor, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	mt, err := mimetype.DetectReader(f)
	if err == nil {
		for mime, format := range mimeFormats {
			if mt.Is(mime) {
				return Descriptor{Category: formatCategories[format], Format: format}, nil
			}
		}
	} else {
		d.logger.Debug("content sniffing failed, falling back to extension",
			zap.String("path", path),
			zap.Error(err),
		)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if cat, ok := formatCategories[ext]; ok {
		return Descriptor{Category: cat, Format: ext}, nil
	}

	return Descriptor{}, fmt.Errorf("%w: %s", ErrUnrecognizedFormat, filepath.Base(path))
}

// SupportedFormats returns the supported format tags grouped by category.
func SupportedFormats() map[Category][]string {
	out := make(map[Category][]string)
	for format, cat := range formatCategories {
		out[cat] = append(out[cat], format)
	}
	for _, formats := range out {
		sort.Strings(formats)
	}
	return out
}

// IsSupported reports whether the format tag is in the supported set.
func IsSupported(format string) bool {
	_, ok := formatCategories[strings.ToLower(format)]
	return ok
}
