package web

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"partsadmin/internal/models"
	"partsadmin/internal/productform"
)

// Entry is an open form. Hold the lock while touching Form.
type Entry struct {
	sync.Mutex
	ID   string
	Form *productform.Form
}

// Registry keeps the forms that are open in browsers.
type Registry struct {
	api productform.API

	mu       sync.Mutex
	entries  map[string]*Entry
	lastUsed map[string]time.Time
	now      func() time.Time
}

func NewRegistry(api productform.API) *Registry {
	return &Registry{
		api:      api,
		entries:  map[string]*Entry{},
		lastUsed: map[string]time.Time{},
		now:      time.Now,
	}
}

// Open creates a form and starts loading its categories.
func (r *Registry) Open(product *models.Product, opts ...productform.Option) *Entry {
	id := uuid.New().String()
	opts = append(opts,
		productform.OnSaved(func() { r.Close(id) }),
		productform.OnClose(func() { r.remove(id) }),
	)
	entry := &Entry{ID: id, Form: productform.New(r.api, product, opts...)}

	r.mu.Lock()
	r.entries[id] = entry
	r.lastUsed[id] = r.now()
	r.mu.Unlock()

	go r.loadCategories(entry)
	return entry
}

func (r *Registry) loadCategories(entry *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	cats, err := r.api.Categories(ctx)
	if err != nil {
		log.Printf("web: categories for form %s: %v", entry.ID, err)
		return
	}
	entry.Lock()
	defer entry.Unlock()
	if !entry.Form.Closed() {
		entry.Form.SetCategories(cats)
	}
}

// Get returns the entry and marks it as used.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if ok {
		r.lastUsed[id] = r.now()
	}
	return entry, ok
}

// Close tears a form down. Closing an unknown id is a no-op.
func (r *Registry) Close(id string) error {
	entry, ok := r.remove(id)
	if !ok {
		return nil
	}
	entry.Lock()
	defer entry.Unlock()
	return entry.Form.Close()
}

func (r *Registry) remove(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	delete(r.entries, id)
	delete(r.lastUsed, id)
	return entry, ok
}

// SweepIdle closes forms nobody touched for maxIdle.
func (r *Registry) SweepIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	var idle []string
	r.mu.Lock()
	for id, at := range r.lastUsed {
		if at.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	r.mu.Unlock()

	for _, id := range idle {
		if err := r.Close(id); err != nil {
			log.Printf("web: close idle form %s: %v", id, err)
		}
	}
	return len(idle)
}

// LivePreviews returns the preview URLs of every file staged in an open form.
func (r *Registry) LivePreviews() map[string]bool {
	r.mu.Lock()
	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	live := map[string]bool{}
	for _, e := range entries {
		e.Lock()
		for _, f := range e.Form.StagedFiles() {
			if f.PreviewURL != "" {
				live[f.PreviewURL] = true
			}
		}
		e.Unlock()
	}
	return live
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
