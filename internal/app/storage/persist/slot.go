// Package persist binds in-memory values to keys of a kv.Backend. Values are
// stored as JSON; timestamps written by isotime come back as time values.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/sarkhq/console/internal/app/metrics"
	"github.com/sarkhq/console/internal/app/storage/kv"
	"github.com/sarkhq/console/pkg/logger"
)

// Slot reads and writes one key.
type Slot[T any] struct {
	backend kv.Backend
	key     string
	log     *logger.Logger
}

// NewSlot creates a slot for key.
func NewSlot[T any](backend kv.Backend, key string, log *logger.Logger) *Slot[T] {
	if log == nil {
		log = logger.NewDefault("persist")
	}
	return &Slot[T]{backend: backend, key: key, log: log}
}

// Key returns the backend key.
func (s *Slot[T]) Key() string { return s.key }

// Load returns the stored value, or def when the key is absent or its
// content cannot be decoded. Decode failures are logged, never returned.
func (s *Slot[T]) Load(ctx context.Context, def T) T {
	raw, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return def
	}
	if err != nil {
		return s.fallback(def, err, "read failed")
	}
	if !gjson.ValidBytes(raw) {
		return s.fallback(def, errors.New("invalid json"), "stored value is corrupt")
	}

	if generic(def) {
		v, err := Revive(raw)
		if err != nil {
			return s.fallback(def, err, "stored value is corrupt")
		}
		out, ok := v.(T)
		if !ok {
			return s.fallback(def, errors.New("unexpected json shape"), "stored value is corrupt")
		}
		return out
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return s.fallback(def, err, "stored value is corrupt")
	}
	return out
}

// Save writes v synchronously. Failures are logged and the previously stored
// value is left as it was.
func (s *Slot[T]) Save(ctx context.Context, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		metrics.RecordPersistWrite(false)
		s.log.WithField("key", s.key).WithError(err).Warn("encode value")
		return
	}
	if err := s.backend.Put(ctx, s.key, data); err != nil {
		metrics.RecordPersistWrite(false)
		s.log.WithField("key", s.key).WithError(err).Warn("write value")
		return
	}
	metrics.RecordPersistWrite(true)
}

func (s *Slot[T]) fallback(def T, err error, msg string) T {
	metrics.RecordLoadFallback(s.key)
	s.log.WithField("key", s.key).WithError(err).Warn(msg + ", using default")
	return def
}

func generic[T any](def T) bool {
	switch any(&def).(type) {
	case *any, *map[string]any, *[]any:
		return true
	}
	return false
}

// Binding is a slot with a cached in-memory value. Writes update the cache
// synchronously and reach the backend through the Writer.
type Binding[T any] struct {
	slot   *Slot[T]
	def    T
	writer *Writer

	mu    sync.RWMutex
	value T
}

// Bind loads slot once and returns a binding that persists through writer.
// A nil writer makes every write synchronous.
func Bind[T any](ctx context.Context, slot *Slot[T], def T, writer *Writer) *Binding[T] {
	return &Binding[T]{
		slot:   slot,
		def:    def,
		writer: writer,
		value:  slot.Load(ctx, def),
	}
}

// Get returns the current value.
func (b *Binding[T]) Get() T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.value
}

// Set replaces the value.
func (b *Binding[T]) Set(v T) {
	b.Update(func(T) T { return v })
}

// Update replaces the value with fn(current) under the binding's lock.
func (b *Binding[T]) Update(fn func(T) T) T {
	b.mu.Lock()
	b.value = fn(b.value)
	v := b.value
	if b.writer != nil {
		b.writer.Persist(b.slot.key, v)
	}
	b.mu.Unlock()

	if b.writer == nil {
		b.slot.Save(context.Background(), v)
	}
	return v
}

// Reload re-reads the backend, falling back to the default the binding was
// created with.
func (b *Binding[T]) Reload(ctx context.Context) T {
	v := b.slot.Load(ctx, b.def)
	b.mu.Lock()
	b.value = v
	b.mu.Unlock()
	return v
}
