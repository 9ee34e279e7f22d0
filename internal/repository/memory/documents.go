// Package memory keeps repositories in process memory. It backs the
// memory storage driver and the component tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"travel/internal/domain"
)

type entry struct {
	payload []byte
	seq     int
}

// documents stores JSON encoded copies so callers never share state with
// the store.
type documents[T any] struct {
	mu       sync.Mutex
	items    map[string]entry
	seq      int
	resource string
}

func newDocuments[T any](resource string) *documents[T] {
	return &documents[T]{
		items:    map[string]entry{},
		resource: resource,
	}
}

func (d *documents[T]) create(_ context.Context, id string, doc *T) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", d.resource, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.items[id]; ok {
		return fmt.Errorf("%s %s already exists: %w", d.resource, id, domain.ErrDuplicateKey)
	}
	d.seq++
	d.items[id] = entry{payload: payload, seq: d.seq}

	return nil
}

func (d *documents[T]) get(_ context.Context, id string) (*T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.items[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: d.resource, ID: id}
	}
	return d.unmarshal(e.payload)
}

// findOne returns the earliest created document matching match.
func (d *documents[T]) findOne(ctx context.Context, match func(doc *T) bool) (*T, error) {
	all, err := d.list(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if match(&all[i]) {
			return &all[i], nil
		}
	}
	return nil, domain.NotFoundError{Resource: d.resource}
}

func (d *documents[T]) list(_ context.Context) ([]T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ordered := make([]entry, 0, len(d.items))
	for _, e := range d.items {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	out := make([]T, 0, len(ordered))
	for _, e := range ordered {
		doc, err := d.unmarshal(e.payload)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (d *documents[T]) delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.items[id]; !ok {
		return domain.NotFoundError{Resource: d.resource, ID: id}
	}
	delete(d.items, id)
	return nil
}

// update runs updateFn with the store locked, so updates of the same
// document are serialized.
func (d *documents[T]) update(_ context.Context, id string, updateFn func(doc *T) error) (*T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.items[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: d.resource, ID: id}
	}

	doc, err := d.unmarshal(e.payload)
	if err != nil {
		return nil, err
	}
	if err := updateFn(doc); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", d.resource, err)
	}
	e.payload = payload
	d.items[id] = e

	return d.unmarshal(payload)
}

func (d *documents[T]) unmarshal(payload []byte) (*T, error) {
	var doc T
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", d.resource, err)
	}
	return &doc, nil
}
