package productform

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
)

// Advisory limits shown next to the photo picker. They are not enforced.
const (
	MaxPhotos     = 5
	MaxPhotoBytes = 5 << 20
)

// Upload is a locally selected image that has not been sent yet.
type Upload interface {
	Filename() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// PreviewStore hands out a preview URL for an upload and takes it back.
type PreviewStore interface {
	Acquire(u Upload) (string, error)
	Release(url string) error
}

// DiscardPreviews is a PreviewStore for surfaces that show no previews.
type DiscardPreviews struct{}

func (DiscardPreviews) Acquire(Upload) (string, error) { return "", nil }
func (DiscardPreviews) Release(string) error           { return nil }

// StagedFile is an upload together with the preview it owns.
type StagedFile struct {
	Upload     Upload
	PreviewURL string
}

// Staging owns the staged files. Every preview it acquired is released
// exactly once: on Remove or on Close.
type Staging struct {
	store  PreviewStore
	files  []StagedFile
	closed bool
}

func NewStaging(store PreviewStore) *Staging {
	if store == nil {
		store = DiscardPreviews{}
	}
	return &Staging{store: store}
}

// Add stages uploads in order. When a preview cannot be acquired the ones
// already acquired for this batch are released and nothing is staged.
func (s *Staging) Add(uploads ...Upload) error {
	if s.closed {
		return ErrFormClosed
	}
	batch := make([]StagedFile, 0, len(uploads))
	for _, u := range uploads {
		url, err := s.store.Acquire(u)
		if err != nil {
			for _, staged := range batch {
				_ = s.store.Release(staged.PreviewURL)
			}
			return fmt.Errorf("preview %s: %w", u.Filename(), err)
		}
		batch = append(batch, StagedFile{Upload: u, PreviewURL: url})
	}
	s.files = append(s.files, batch...)
	return nil
}

// Remove drops the staged file at i and releases its preview.
func (s *Staging) Remove(i int) error {
	if i < 0 || i >= len(s.files) {
		return fmt.Errorf("%w: staged file %d", ErrIndexOutOfRange, i)
	}
	staged := s.files[i]
	s.files = slices.Delete(s.files, i, i+1)
	if err := s.store.Release(staged.PreviewURL); err != nil {
		return fmt.Errorf("release preview %s: %w", staged.Upload.Filename(), err)
	}
	return nil
}

// Close releases every remaining preview. Calling it again is a no-op.
func (s *Staging) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	for _, staged := range s.files {
		if err := s.store.Release(staged.PreviewURL); err != nil {
			errs = append(errs, err)
		}
	}
	s.files = nil
	return errors.Join(errs...)
}

func (s *Staging) Files() []StagedFile { return slices.Clone(s.files) }

func (s *Staging) Len() int { return len(s.files) }

// FileUpload is an upload read from a path on disk.
type FileUpload struct {
	Path string
	size int64
}

func NewFileUpload(path string) (*FileUpload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &FileUpload{Path: path, size: info.Size()}, nil
}

func (u *FileUpload) Filename() string { return filepath.Base(u.Path) }

func (u *FileUpload) Size() int64 { return u.size }

func (u *FileUpload) Open() (io.ReadCloser, error) { return os.Open(u.Path) }
