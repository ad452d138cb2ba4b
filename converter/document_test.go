package converter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestDocumentConvert_TextToMarkdownIsCopy(t *testing.T) {
	c := NewDocument(zaptest.NewLogger(t), EnginePaths{})
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.txt")
	out := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(in, []byte("# Hello\n"), 0o644))

	require.NoError(t, c.Convert(context.Background(), in, out, "md", Options{}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "# Hello\n", string(data))
}

func TestDocumentConvert_UnknownPair(t *testing.T) {
	c := NewDocument(zaptest.NewLogger(t), EnginePaths{})
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(in, []byte("Hello"), 0o644))

	err := c.Convert(context.Background(), in, filepath.Join(dir, "out.xlsx"), "xlsx", Options{})
	require.Error(t, err)
}

func TestDocumentConvert_MissingEngineIsUnavailable(t *testing.T) {
	c := NewDocument(zaptest.NewLogger(t), EnginePaths{})
	if c.soffice != "" {
		t.Skip("LibreOffice installed; unavailability path not reachable")
	}
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(in, []byte("Hello"), 0o644))

	err := c.Convert(context.Background(), in, filepath.Join(dir, "notes.pdf"), "pdf", Options{})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDocumentConvert_TextToPDF(t *testing.T) {
	c := NewDocument(zaptest.NewLogger(t), EnginePaths{})
	if c.soffice == "" {
		t.Skip("LibreOffice not installed")
	}
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.txt")
	out := filepath.Join(dir, "notes.pdf")
	require.NoError(t, os.WriteFile(in, []byte("Hello"), 0o644))

	require.NoError(t, c.Convert(context.Background(), in, out, "pdf", Options{}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestDocumentConvert_PDFToText(t *testing.T) {
	c := NewDocument(zaptest.NewLogger(t), EnginePaths{})
	if c.soffice == "" || c.pdftotext == "" {
		t.Skip("LibreOffice or pdftotext not installed")
	}
	dir := t.TempDir()
	in := filepath.Join(dir, "notes.txt")
	pdf := filepath.Join(dir, "notes.pdf")
	txt := filepath.Join(dir, "roundtrip.txt")
	require.NoError(t, os.WriteFile(in, []byte("roundtrip marker"), 0o644))

	require.NoError(t, c.Convert(context.Background(), in, pdf, "pdf", Options{}))
	require.NoError(t, c.Convert(context.Background(), pdf, txt, "txt", Options{}))

	data, err := os.ReadFile(txt)
	require.NoError(t, err)
	assert.Contains(t, string(data), "roundtrip marker")
}

func TestOCR_UnavailableWithoutTesseract(t *testing.T) {
	o := NewOCR(zaptest.NewLogger(t), "", "")
	if o.Available() {
		t.Skip("tesseract installed; unavailability path not reachable")
	}
	_, err := o.ExtractText(context.Background(), "whatever.png", SourceImage, "eng")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestOCR_RejectsUnknownKind(t *testing.T) {
	o := NewOCR(zaptest.NewLogger(t), "", "")
	if !o.Available() {
		t.Skip("tesseract not installed")
	}
	_, err := o.ExtractText(context.Background(), "whatever.bin", SourceKind("audio"), "eng")
	require.Error(t, err)
}
