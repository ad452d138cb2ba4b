package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"fileconverter/capability"
	"fileconverter/converter"
	"fileconverter/detect"
	"fileconverter/pool"
	"fileconverter/session"
)

// stubConverter lets tests script the collaborator's behavior.
type stubConverter struct {
	fn func(ctx context.Context, in, out, target string, opts converter.Options) error
}

func (s stubConverter) Convert(ctx context.Context, in, out, target string, opts converter.Options) error {
	return s.fn(ctx, in, out, target, opts)
}

type harness struct {
	fs    afero.Fs
	store *session.Store
	conv  *Converter
}

func newHarness(t *testing.T, image, document FileConverter) *harness {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := session.NewStore(fs, "/data/uploads", "/data/outputs", zaptest.NewLogger(t))
	require.NoError(t, err)
	return newHarnessWith(t, &harness{fs: fs, store: store}, image, document)
}

func (h *harness) upload(t *testing.T, name string, data []byte) string {
	t.Helper()
	id, err := h.store.Create()
	require.NoError(t, err)
	_, err = h.store.SaveUpload(id, name, bytes.NewReader(data))
	require.NoError(t, err)
	return id
}

func (h *harness) outputFiles(t *testing.T, id string) []string {
	t.Helper()
	entries, err := afero.ReadDir(h.fs, "/data/outputs/"+id)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestConvert_SameFormatIsByteIdentical(t *testing.T) {
	h := newHarness(t, nil, nil)
	id := h.upload(t, "notes.txt", []byte("Hello"))

	out, err := h.conv.Convert(context.Background(), Job{
		SessionID: id, Filename: "notes.txt", TargetFormat: "txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", out)

	inPath, _ := h.store.ResolveUpload(id, "notes.txt")
	outPath, _ := h.store.ResolveOutput(id, out)
	inData, err := afero.ReadFile(h.fs, inPath)
	require.NoError(t, err)
	outData, err := afero.ReadFile(h.fs, outPath)
	require.NoError(t, err)
	assert.Equal(t, sha256.Sum256(inData), sha256.Sum256(outData))
}

func TestConvert_DispatchesByDetectedCategory(t *testing.T) {
	var calledTarget string
	h := newHarness(t, nil, nil)
	img := stubConverter{fn: func(_ context.Context, _, out, target string, _ converter.Options) error {
		calledTarget = target
		return afero.WriteFile(h.fs, out, []byte("jpg-bytes"), 0o644)
	}}
	h = newHarnessWith(t, h, img, nil)

	// Uploaded with a misleading extension: routing must follow the bytes.
	id := h.upload(t, "photo.txt", pngBytes(t))

	out, err := h.conv.Convert(context.Background(), Job{
		SessionID: id, Filename: "photo.txt", TargetFormat: "jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", out)
	assert.Equal(t, "jpg", calledTarget)
}

// newHarnessWith rebuilds a harness reusing fs and store so stubs can
// close over them.
func newHarnessWith(t *testing.T, h *harness, image, document FileConverter) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	if image == nil {
		image = stubConverter{fn: func(context.Context, string, string, string, converter.Options) error {
			t.Fatal("image converter should not be called")
			return nil
		}}
	}
	if document == nil {
		document = stubConverter{fn: func(context.Context, string, string, string, converter.Options) error {
			t.Fatal("document converter should not be called")
			return nil
		}}
	}
	conv := NewConverter(
		h.fs, h.store,
		detect.NewDetector(h.fs, logger),
		capability.New(),
		image, document,
		pool.NewLimiter(2),
		logger,
	)
	return &harness{fs: h.fs, store: h.store, conv: conv}
}

func TestConvert_UnsupportedPairWritesNothing(t *testing.T) {
	h := newHarness(t, nil, nil)
	id := h.upload(t, "notes.txt", []byte("Hello"))

	_, err := h.conv.Convert(context.Background(), Job{
		SessionID: id, Filename: "notes.txt", TargetFormat: "xlsx",
	})
	require.ErrorIs(t, err, ErrUnsupportedConversion)
	assert.Empty(t, h.outputFiles(t, id))
}

func TestConvert_UnknownTargetFormat(t *testing.T) {
	h := newHarness(t, nil, nil)
	id := h.upload(t, "notes.txt", []byte("Hello"))

	_, err := h.conv.Convert(context.Background(), Job{
		SessionID: id, Filename: "notes.txt", TargetFormat: "mp4",
	})
	require.ErrorIs(t, err, ErrUnsupportedConversion)
}

func TestConvert_MissingInputIsNotFound(t *testing.T) {
	h := newHarness(t, nil, nil)
	id := h.upload(t, "notes.txt", []byte("Hello"))

	_, err := h.conv.Convert(context.Background(), Job{
		SessionID: id, Filename: "other.txt", TargetFormat: "pdf",
	})
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestConvert_SweptSessionSurfacesNotFound(t *testing.T) {
	// The documented sweep race: the session vanishes before the convert
	// request reaches it. The caller gets NotFound, not a crash.
	h := newHarness(t, nil, nil)
	id := h.upload(t, "notes.txt", []byte("Hello"))
	require.NoError(t, h.store.Delete(id))

	_, err := h.conv.Convert(context.Background(), Job{
		SessionID: id, Filename: "notes.txt", TargetFormat: "pdf",
	})
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestConvert_TraversalRejected(t *testing.T) {
	h := newHarness(t, nil, nil)
	id := h.upload(t, "notes.txt", []byte("Hello"))

	_, err := h.conv.Convert(context.Background(), Job{
		SessionID: id, Filename: "../../etc/passwd", TargetFormat: "pdf",
	})
	require.ErrorIs(t, err, session.ErrPathTraversal)
}

func TestConvert_CollaboratorFailureLeavesNoPartialOutput(t *testing.T) {
	h := newHarness(t, nil, nil)
	boom := errors.New("encoder exploded")
	doc := stubConverter{fn: func(_ context.Context, _, out, _ string, _ converter.Options) error {
		// Write some garbage before failing, like a crashed engine would.
		_ = afero.WriteFile(h.fs, out, []byte("partial"), 0o644)
		return boom
	}}
	h = newHarnessWith(t, h, nil, doc)

	id := h.upload(t, "notes.txt", []byte("Hello"))
	_, err := h.conv.Convert(context.Background(), Job{
		SessionID: id, Filename: "notes.txt", TargetFormat: "pdf",
	})
	require.ErrorIs(t, err, ErrConversionFailed)
	require.ErrorIs(t, err, boom, "original cause must stay in the chain")
	assert.Empty(t, h.outputFiles(t, id))
}

func TestConvert_UnrecognizedInput(t *testing.T) {
	h := newHarness(t, nil, nil)
	id := h.upload(t, "blob.xyz", []byte{0x01, 0x02, 0x03})

	_, err := h.conv.Convert(context.Background(), Job{
		SessionID: id, Filename: "blob.xyz", TargetFormat: "pdf",
	})
	require.ErrorIs(t, err, detect.ErrUnrecognizedFormat)
}

func TestConvert_PassesOptionsThrough(t *testing.T) {
	var got converter.Options
	h := newHarness(t, nil, nil)
	img := stubConverter{fn: func(_ context.Context, _, out, _ string, opts converter.Options) error {
		got = opts
		return afero.WriteFile(h.fs, out, []byte("x"), 0o644)
	}}
	h = newHarnessWith(t, h, img, nil)

	id := h.upload(t, "img.png", pngBytes(t))
	_, err := h.conv.Convert(context.Background(), Job{
		SessionID: id, Filename: "img.png", TargetFormat: "jpg",
		Options: converter.Options{Quality: 70, MaxWidth: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, 70, got.Quality)
	assert.Equal(t, 100, got.MaxWidth)
}
