package storage

import (
	"bytes"
	"sort"
	"sync"
)

// Overlay buffers writes on top of a parent database. Reads fall through to
// the parent for keys the overlay has not touched. Commit flushes every
// buffered write to the parent in one batch; dropping the overlay discards
// them.
type Overlay struct {
	parent Database

	mu      sync.RWMutex
	writes  map[string][]byte
	deletes map[string]struct{}
}

// NewOverlay stacks a fresh overlay on parent.
func NewOverlay(parent Database) *Overlay {
	return &Overlay{
		parent:  parent,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (o *Overlay) Put(key []byte, value []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	k := string(key)
	delete(o.deletes, k)
	o.writes[k] = append([]byte(nil), value...)
	return nil
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	o.mu.RLock()
	k := string(key)
	if _, gone := o.deletes[k]; gone {
		o.mu.RUnlock()
		return nil, ErrNotFound
	}
	if v, ok := o.writes[k]; ok {
		o.mu.RUnlock()
		return append([]byte(nil), v...), nil
	}
	o.mu.RUnlock()
	return o.parent.Get(key)
}

func (o *Overlay) Delete(key []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	k := string(key)
	delete(o.writes, k)
	o.deletes[k] = struct{}{}
	return nil
}

// Iterate merges buffered writes with the parent's keys.
func (o *Overlay) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	merged := make(map[string][]byte)
	if err := o.parent.Iterate(prefix, func(key, value []byte) bool {
		merged[string(key)] = value
		return true
	}); err != nil {
		return err
	}
	o.mu.RLock()
	for k := range o.deletes {
		delete(merged, k)
	}
	for k, v := range o.writes {
		if bytes.HasPrefix([]byte(k), prefix) {
			merged[k] = append([]byte(nil), v...)
		}
	}
	o.mu.RUnlock()

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn([]byte(k), merged[k]) {
			return nil
		}
	}
	return nil
}

// Write buffers the batch operations.
func (o *Overlay) Write(b *Batch) error {
	if b == nil {
		return nil
	}
	for _, op := range b.ops {
		if op.delete {
			_ = o.Delete(op.key)
			continue
		}
		_ = o.Put(op.key, op.value)
	}
	return nil
}

// Dirty reports whether the overlay holds uncommitted changes.
func (o *Overlay) Dirty() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.writes)+len(o.deletes) > 0
}

// Commit flushes buffered changes to the parent and resets the overlay.
func (o *Overlay) Commit() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	batch := new(Batch)
	for k := range o.deletes {
		batch.Delete([]byte(k))
	}
	for k, v := range o.writes {
		batch.Put([]byte(k), v)
	}
	if err := o.parent.Write(batch); err != nil {
		return err
	}
	o.writes = make(map[string][]byte)
	o.deletes = make(map[string]struct{})
	return nil
}

// Close is a no-op; the parent owns the underlying handle.
func (o *Overlay) Close() {}
