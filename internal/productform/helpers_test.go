package productform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"partsadmin/internal/catalog"
	"partsadmin/internal/models"
)

type call struct {
	method  string
	id      string
	payload *catalog.Payload
}

type fakeAPI struct {
	mu         sync.Mutex
	calls      []call
	err        error
	categories []models.Category
	encode     bool
}

func (a *fakeAPI) Categories(ctx context.Context) ([]models.Category, error) {
	return a.categories, nil
}

func (a *fakeAPI) CreateProduct(ctx context.Context, p *catalog.Payload) error {
	return a.record("create", "", p)
}

func (a *fakeAPI) UpdateProduct(ctx context.Context, id string, p *catalog.Payload) error {
	return a.record("update", id, p)
}

func (a *fakeAPI) record(method, id string, p *catalog.Payload) error {
	a.mu.Lock()
	a.calls = append(a.calls, call{method: method, id: id, payload: p})
	a.mu.Unlock()
	if a.encode {
		if _, _, err := p.Encode(); err != nil {
			return fmt.Errorf("%w: %v", catalog.ErrEncode, err)
		}
	}
	return a.err
}

type memUpload struct {
	name string
	data string
	size int64
}

func (u memUpload) Filename() string { return u.name }

func (u memUpload) Size() int64 {
	if u.size > 0 {
		return u.size
	}
	return int64(len(u.data))
}

func (u memUpload) Open() (io.ReadCloser, error) {
	if u.data == "" {
		return nil, errors.New("no data")
	}
	return io.NopCloser(strings.NewReader(u.data)), nil
}

type fakePreviews struct {
	next     int
	live     map[string]bool
	released []string
	failOn   string
}

func newFakePreviews() *fakePreviews {
	return &fakePreviews{live: map[string]bool{}}
}

func (p *fakePreviews) Acquire(u Upload) (string, error) {
	if u.Filename() == p.failOn {
		return "", errors.New("disk full")
	}
	p.next++
	url := fmt.Sprintf("/previews/%d-%s", p.next, u.Filename())
	p.live[url] = true
	return url, nil
}

func (p *fakePreviews) Release(url string) error {
	if !p.live[url] {
		return fmt.Errorf("release of unknown preview %s", url)
	}
	delete(p.live, url)
	p.released = append(p.released, url)
	return nil
}
