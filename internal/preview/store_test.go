package preview

import (
	"bytes"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partsadmin/internal/productform"
)

func newTestStore(t *testing.T) (*Store, *MemoryLedger) {
	t.Helper()
	ledger := NewMemoryLedger()
	s, err := NewStore(filepath.Join(t.TempDir(), "previews"), ledger)
	require.NoError(t, err)
	return s, ledger
}

func TestStore_SpoolAndRelease(t *testing.T) {
	s, ledger := newTestStore(t)

	f, err := s.Spool("Filtro.JPG", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "Filtro.JPG", f.Filename())
	assert.Equal(t, int64(10), f.Size())
	assert.True(t, strings.HasPrefix(f.URL(), URLPrefix))
	assert.True(t, strings.HasSuffix(f.URL(), ".jpg"))
	assert.Equal(t, 1, ledger.Len())

	rc, err := f.Open()
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "jpeg-bytes", string(data))

	url, err := s.Acquire(f)
	require.NoError(t, err)
	assert.Equal(t, f.URL(), url)
	assert.Equal(t, 1, ledger.Len(), "spooled files are not copied again")

	require.NoError(t, s.Release(url))
	assert.Equal(t, 0, ledger.Len())
	_, err = f.Open()
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, s.Release(url), "second release is ignored")
}

func TestStore_RejectsUnsupportedFormat(t *testing.T) {
	s, ledger := newTestStore(t)
	_, err := s.Spool("notes.txt", strings.NewReader("x"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	assert.Equal(t, 0, ledger.Len())
}

func TestStore_ReleaseRejectsForeignURL(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Error(t, s.Release("/uploads/../../etc/passwd"))
	assert.Error(t, s.Release("/previews/not-a-token.jpg"))
	assert.NoError(t, s.Release(""))
}

func TestStore_AcquireCopiesForeignUploads(t *testing.T) {
	s, ledger := newTestStore(t)
	src := filepath.Join(t.TempDir(), "pastilla.png")
	require.NoError(t, os.WriteFile(src, []byte("png"), 0o644))
	u, err := productform.NewFileUpload(src)
	require.NoError(t, err)

	url, err := s.Acquire(u)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".png"))
	assert.Equal(t, 1, ledger.Len())
	_, err = os.Stat(filepath.Join(s.Dir(), filepath.Base(url)))
	assert.NoError(t, err)
}

func TestStore_Sweep(t *testing.T) {
	s, ledger := newTestStore(t)

	s.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	old, err := s.Spool("old.jpg", strings.NewReader("o"))
	require.NoError(t, err)
	s.now = time.Now
	fresh, err := s.Spool("fresh.jpg", strings.NewReader("f"))
	require.NoError(t, err)

	stray := filepath.Join(s.Dir(), "stray.webp")
	require.NoError(t, os.WriteFile(stray, []byte("s"), 0o644))
	past := time.Now().Add(-5 * time.Hour)
	require.NoError(t, os.Chtimes(stray, past, past))

	swept, err := s.Sweep(2*time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, swept)
	assert.Equal(t, 1, ledger.Len())

	_, err = old.Open()
	assert.Error(t, err)
	_, err = fresh.Open()
	assert.NoError(t, err)
	_, err = os.Stat(stray)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStore_SweepKeepsLivePreviews(t *testing.T) {
	s, ledger := newTestStore(t)

	s.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }
	staged, err := s.Spool("staged.jpg", strings.NewReader("s"))
	require.NoError(t, err)
	orphan, err := s.Spool("orphan.jpg", strings.NewReader("o"))
	require.NoError(t, err)
	s.now = time.Now
	past := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(staged.path, past, past))
	require.NoError(t, os.Chtimes(orphan.path, past, past))

	swept, err := s.Sweep(2*time.Hour, map[string]bool{staged.URL(): true})
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Equal(t, 1, ledger.Len())

	rc, err := staged.Open()
	require.NoError(t, err)
	rc.Close()
	_, err = orphan.Open()
	assert.Error(t, err)
}

// brokenLedger loses its connection after recording.
type brokenLedger struct{ *MemoryLedger }

func (brokenLedger) Forget(string) error { return errors.New("connection refused") }

func TestStore_SweepLogsLedgerFailures(t *testing.T) {
	s, err := NewStore(t.TempDir(), brokenLedger{NewMemoryLedger()})
	require.NoError(t, err)

	stray := filepath.Join(s.Dir(), "stray.png")
	require.NoError(t, os.WriteFile(stray, []byte("s"), 0o644))
	past := time.Now().Add(-5 * time.Hour)
	require.NoError(t, os.Chtimes(stray, past, past))

	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	swept, err := s.Sweep(2*time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Contains(t, logs.String(), "preview: forget stray.png: connection refused")
}

func TestStore_WorksAsFormPreviewStore(t *testing.T) {
	s, ledger := newTestStore(t)
	var store productform.PreviewStore = s

	f, err := s.Spool("a.jpg", strings.NewReader("a"))
	require.NoError(t, err)
	staging := productform.NewStaging(store)
	require.NoError(t, staging.Add(f))
	require.NoError(t, staging.Close())
	assert.Equal(t, 0, ledger.Len())
}
