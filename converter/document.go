package converter

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Document converts between document formats by driving external engines:
// LibreOffice for office/pdf renderings, Pandoc for text and markup, and
// Poppler (pdftotext/pdftoppm) for PDF extraction. Each engine is resolved
// once at construction; conversions needing a missing engine fail with
// ErrUnavailable.
type Document struct {
	logger    *zap.Logger
	soffice   string
	pandoc    string
	pdftotext string
	pdftoppm  string
}

// EnginePaths overrides binary discovery, normally for configuration or
// tests. Empty fields fall back to PATH lookup.
type EnginePaths struct {
	LibreOffice string
	Pandoc      string
	PDFToText   string
	PDFToPPM    string
}

func NewDocument(logger *zap.Logger, paths EnginePaths) *Document {
	return &Document{
		logger:    logger,
		soffice:   lookPath(paths.LibreOffice, "libreoffice", "soffice"),
		pandoc:    lookPath(paths.Pandoc, "pandoc"),
		pdftotext: lookPath(paths.PDFToText, "pdftotext"),
		pdftoppm:  lookPath(paths.PDFToPPM, "pdftoppm"),
	}
}

func (c *Document) Convert(ctx context.Context, inputPath, outputPath, targetFormat string, _ Options) error {
	source := strings.ToLower(strings.TrimPrefix(filepath.Ext(inputPath), "."))
	target := strings.ToLower(targetFormat)

	c.logger.Info("converting document",
		zap.String("input", inputPath),
		zap.String("source", source),
		zap.String("target", target),
	)

	switch source {
	case "pdf":
		return c.fromPDF(ctx, inputPath, outputPath, target)
	case "docx":
		return c.fromDocx(ctx, inputPath, outputPath, target)
	case "txt", "md":
		return c.fromText(ctx, inputPath, outputPath, target)
	case "xlsx", "xlsm":
		return c.viaSoffice(ctx, inputPath, outputPath, target)
	case "csv":
		return c.viaSoffice(ctx, inputPath, outputPath, target)
	}
	return fmt.Errorf("no document conversion from %s to %s", source, target)
}

func (c *Document) fromPDF(ctx context.Context, in, out, target string) error {
	switch target {
	case "txt":
		if c.pdftotext == "" {
			return fmt.Errorf("%w: pdftotext", ErrUnavailable)
		}
		_, err := runEngine(ctx, c.logger, c.pdftotext, in, out)
		return err
	case "png", "jpg", "jpeg":
		return c.pdfToImage(ctx, in, out, target)
	case "docx":
		return c.viaSoffice(ctx, in, out, target)
	}
	return fmt.Errorf("no document conversion from pdf to %s", target)
}

// pdfToImage renders the first page with pdftoppm.
func (c *Document) pdfToImage(ctx context.Context, in, out, target string) error {
	if c.pdftoppm == "" {
		return fmt.Errorf("%w: pdftoppm", ErrUnavailable)
	}
	flag, ext := "-png", "png"
	if target == "jpg" || target == "jpeg" {
		flag, ext = "-jpeg", "jpg"
	}
	prefix := strings.TrimSuffix(out, filepath.Ext(out))
	if _, err := runEngine(ctx, c.logger, c.pdftoppm, flag, "-singlefile", "-r", "150", in, prefix); err != nil {
		return err
	}
	produced := prefix + "." + ext
	if produced == out {
		return nil
	}
	return os.Rename(produced, out)
}

func (c *Document) fromDocx(ctx context.Context, in, out, target string) error {
	switch target {
	case "pdf":
		return c.viaSoffice(ctx, in, out, target)
	case "txt":
		return c.viaPandoc(ctx, in, out, "docx", "plain")
	case "md":
		return c.viaPandoc(ctx, in, out, "docx", "gfm")
	}
	return fmt.Errorf("no document conversion from docx to %s", target)
}

func (c *Document) fromText(ctx context.Context, in, out, target string) error {
	switch target {
	case "txt", "md":
		// txt <-> md carry the same bytes; only the extension differs.
		return copyFile(in, out)
	case "pdf":
		return c.viaSoffice(ctx, in, out, target)
	case "docx":
		return c.viaPandoc(ctx, in, out, "markdown", "docx")
	}
	return fmt.Errorf("no document conversion from text to %s", target)
}

func (c *Document) viaPandoc(ctx context.Context, in, out, from, to string) error {
	if c.pandoc == "" {
		return fmt.Errorf("%w: pandoc", ErrUnavailable)
	}
	_, err := runEngine(ctx, c.logger, c.pandoc, "-f", from, "-t", to, "-o", out, in)
	return err
}

// viaSoffice runs a headless LibreOffice conversion. LibreOffice only
// writes <stem>.<target> into --outdir, so convert inside a scratch
// directory next to the destination and rename into place.
func (c *Document) viaSoffice(ctx context.Context, in, out, target string) error {
	if c.soffice == "" {
		return fmt.Errorf("%w: libreoffice", ErrUnavailable)
	}
	scratch, err := os.MkdirTemp(filepath.Dir(out), "soffice-")
	if err != nil {
		return fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	if _, err := runEngine(ctx, c.logger, c.soffice, "--headless", "--convert-to", target, "--outdir", scratch, in); err != nil {
		return err
	}

	stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	produced := filepath.Join(scratch, stem+"."+target)
	if _, err := os.Stat(produced); err != nil {
		return fmt.Errorf("libreoffice produced no output for %s", filepath.Base(in))
	}
	return os.Rename(produced, out)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
