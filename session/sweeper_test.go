package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// ageSession back-dates both area directories so a session looks idle.
func ageSession(t *testing.T, fs afero.Fs, id string, age time.Duration) {
	t.Helper()
	when := time.Now().Add(-age)
	for _, root := range []string{"/data/uploads", "/data/outputs"} {
		require.NoError(t, fs.Chtimes(filepath.Join(root, id), when, when))
	}
}

func newSessionWithFile(t *testing.T, store *Store, fs afero.Fs, content string) string {
	t.Helper()
	id, err := store.Create()
	require.NoError(t, err)
	path, err := store.ResolveUpload(id, "file.txt")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	return id
}

func TestSweeper_RemovesOnlyStaleSessions(t *testing.T) {
	store, fs := newTestStore(t)
	sw := NewSweeper(store, 24*time.Hour, time.Hour, zaptest.NewLogger(t))

	stale1 := newSessionWithFile(t, store, fs, "old-1")
	stale2 := newSessionWithFile(t, store, fs, "old-22")
	fresh := newSessionWithFile(t, store, fs, "new")

	ageSession(t, fs, stale1, 25*time.Hour)
	ageSession(t, fs, stale2, 48*time.Hour)
	ageSession(t, fs, fresh, time.Hour)

	stats := sw.Run()
	assert.Equal(t, 2, stats.SessionsRemoved)
	assert.Equal(t, int64(len("old-1")+len("old-22")), stats.BytesFreed)
	assert.Empty(t, stats.Errors)

	for _, id := range []string{stale1, stale2} {
		ok, _ := afero.DirExists(fs, "/data/uploads/"+id)
		assert.False(t, ok, "stale session %s should be gone", id)
	}
	ok, _ := afero.DirExists(fs, "/data/uploads/"+fresh)
	assert.True(t, ok, "fresh session must survive")
}

func TestSweeper_SecondRunIsIdempotent(t *testing.T) {
	store, fs := newTestStore(t)
	sw := NewSweeper(store, 24*time.Hour, time.Hour, zaptest.NewLogger(t))

	id := newSessionWithFile(t, store, fs, "stale")
	ageSession(t, fs, id, 30*time.Hour)

	first := sw.Run()
	assert.Equal(t, 1, first.SessionsRemoved)

	second := sw.Run()
	assert.Equal(t, 0, second.SessionsRemoved)
	assert.Equal(t, int64(0), second.BytesFreed)
	assert.Empty(t, second.Errors)
}

func TestSweeper_ActivityInEitherAreaKeepsSessionAlive(t *testing.T) {
	store, fs := newTestStore(t)
	sw := NewSweeper(store, 24*time.Hour, time.Hour, zaptest.NewLogger(t))

	id := newSessionWithFile(t, store, fs, "data")
	// Upload area went stale, but a recent conversion touched the output
	// area: the session is still live.
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, fs.Chtimes("/data/uploads/"+id, old, old))
	recent := time.Now().Add(-time.Minute)
	require.NoError(t, fs.Chtimes("/data/outputs/"+id, recent, recent))

	stats := sw.Run()
	assert.Equal(t, 0, stats.SessionsRemoved)

	ok, _ := afero.DirExists(fs, "/data/uploads/"+id)
	assert.True(t, ok)
}

func TestSweeper_ToleratesVanishedSession(t *testing.T) {
	store, fs := newTestStore(t)
	sw := NewSweeper(store, 24*time.Hour, time.Hour, zaptest.NewLogger(t))

	id := newSessionWithFile(t, store, fs, "going")
	ageSession(t, fs, id, 30*time.Hour)

	// Simulate an explicit cleanup racing the sweep: the session is gone
	// before Delete runs. Store.Delete treats that as success, so the
	// sweep reports no error.
	require.NoError(t, store.Delete(id))

	stats := sw.Run()
	assert.Empty(t, stats.Errors)
}

func TestSweeper_StartStopLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	sw := NewSweeper(store, time.Hour, 10*time.Millisecond, zaptest.NewLogger(t))

	sw.Start()
	time.Sleep(30 * time.Millisecond)
	sw.Stop()

	// Stop is idempotent and Run still works after shutdown.
	sw.Stop()
	assert.Equal(t, 0, sw.Run().SessionsRemoved)
}
