package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	texts []*string
}

func (r *recorder) record(text *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
}

func (r *recorder) last() (*string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.texts) == 0 {
		return nil, 0
	}
	return r.texts[len(r.texts)-1], len(r.texts)
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.jsx")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	rec := &recorder{}
	w, err := NewWatcher(path, rec.record, nil)
	require.NoError(t, err)
	defer w.Stop()

	initial := w.Read()
	require.NotNil(t, initial)
	assert.Equal(t, "v1", *initial)

	w.Start()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))

	require.Eventually(t, func() bool {
		text, _ := rec.last()
		return text != nil && *text == "v2"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherReadFailureIsNoChange(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(filepath.Join(dir, "missing.jsx"), func(*string) {}, nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.Nil(t, w.Read())
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "app.jsx"), func(*string) {}, nil)
	require.NoError(t, err)
	w.Start()

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestNewWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "app.jsx"), func(*string) {}, nil)
	assert.Error(t, err)
}
