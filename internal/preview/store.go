package preview

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"partsadmin/internal/models"
	"partsadmin/internal/productform"
)

// URLPrefix is where the web surface serves the preview directory.
const URLPrefix = "/previews/"

var ErrUnsupportedFormat = errors.New("unsupported image format")

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// Store keeps staged image bytes on disk and serves them as previews.
type Store struct {
	dir    string
	ledger Ledger
	now    func() time.Time
}

func NewStore(dir string, ledger Ledger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("preview dir: %w", err)
	}
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	return &Store{dir: dir, ledger: ledger, now: time.Now}, nil
}

func (s *Store) Dir() string { return s.dir }

// File is an upload spooled into the store. It stays readable until its
// preview is released.
type File struct {
	token string
	name  string
	path  string
	size  int64
}

func (f *File) Filename() string { return f.name }

func (f *File) Size() int64 { return f.size }

func (f *File) Open() (io.ReadCloser, error) { return os.Open(f.path) }

func (f *File) URL() string { return URLPrefix + filepath.Base(f.path) }

// Spool copies r into the store under a fresh token.
func (s *Store) Spool(name string, r io.Reader) (*File, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !imageExts[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	token := uuid.New().String()
	dst := filepath.Join(s.dir, token+ext)

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("spool %s: %w", name, err)
	}

	rec := &models.PreviewRecord{Token: token, Filename: name, Path: dst}
	rec.CreatedAt = s.now()
	if err := s.ledger.Record(rec); err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("record preview: %w", err)
	}
	return &File{token: token, name: name, path: dst, size: n}, nil
}

// Acquire implements productform.PreviewStore. Files spooled by this store
// are used in place; anything else is copied in first.
func (s *Store) Acquire(u productform.Upload) (string, error) {
	if f, ok := u.(*File); ok && filepath.Dir(f.path) == filepath.Clean(s.dir) {
		return f.URL(), nil
	}
	src, err := u.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	f, err := s.Spool(u.Filename(), src)
	if err != nil {
		return "", err
	}
	return f.URL(), nil
}

// Release deletes the preview behind url. Unknown previews are ignored.
func (s *Store) Release(url string) error {
	if url == "" {
		return nil
	}
	base := path.Base(url)
	token := strings.TrimSuffix(base, path.Ext(base))
	if _, err := uuid.Parse(token); err != nil || !strings.HasPrefix(url, URLPrefix) {
		return fmt.Errorf("not a preview url: %q", url)
	}
	if err := os.Remove(filepath.Join(s.dir, base)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return s.ledger.Forget(token)
}

// Sweep releases previews older than maxAge: those in the ledger and any
// stray file left in the directory. Previews whose URL is in live are still
// owned by a staged file and are kept whatever their age.
func (s *Store) Sweep(maxAge time.Duration, live map[string]bool) (int, error) {
	cutoff := s.now().Add(-maxAge)
	swept := 0

	recs, err := s.ledger.OlderThan(cutoff)
	if err != nil {
		return 0, err
	}
	for _, rec := range recs {
		if live[URLPrefix+filepath.Base(rec.Path)] {
			continue
		}
		if err := os.Remove(rec.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("preview: sweep %s: %v", rec.Path, err)
			continue
		}
		if err := s.ledger.Forget(rec.Token); err != nil {
			return swept, err
		}
		swept++
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return swept, err
	}
	for _, e := range entries {
		if e.IsDir() || live[URLPrefix+e.Name()] {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			continue
		}
		swept++
		if err := s.ledger.Forget(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))); err != nil {
			log.Printf("preview: forget %s: %v", e.Name(), err)
		}
	}
	return swept, nil
}
