// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"context"
	"sync"

	"github.com/sarkhq/console/internal/app/chance"
	"github.com/sarkhq/console/internal/app/domain/messaging"
	"github.com/sarkhq/console/internal/app/storage/kv"
)

var _ chance.Source = (*Sequence)(nil)

// Sequence is a chance.Source replaying fixed draws. Once a list runs out
// its last value repeats; IntN draws default to zero.
type Sequence struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
}

// NewSequence returns a source yielding floats in order.
func NewSequence(floats ...float64) *Sequence {
	if len(floats) == 0 {
		floats = []float64{0}
	}
	return &Sequence{floats: floats}
}

// WithInts sets the values IntN yields, each taken modulo n.
func (s *Sequence) WithInts(ints ...int) *Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints = ints
	return s
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.floats[0]
	if len(s.floats) > 1 {
		s.floats = s.floats[1:]
	}
	return v
}

func (s *Sequence) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	if len(s.ints) > 1 {
		s.ints = s.ints[1:]
	}
	return v % n
}

var _ kv.Backend = (*FailingBackend)(nil)

// FailingBackend wraps a backend and fails reads or writes on demand.
type FailingBackend struct {
	kv.Backend

	mu     sync.RWMutex
	getErr error
	putErr error
}

// NewFailingBackend wraps an in-memory backend.
func NewFailingBackend() *FailingBackend {
	return &FailingBackend{Backend: kv.NewMemory()}
}

// FailGets makes every Get return err. A nil err restores normal reads.
func (f *FailingBackend) FailGets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = err
}

// FailPuts makes every Put return err. A nil err restores normal writes.
func (f *FailingBackend) FailPuts(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putErr = err
}

func (f *FailingBackend) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	err := f.getErr
	f.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return f.Backend.Get(ctx, key)
}

func (f *FailingBackend) Put(ctx context.Context, key string, value []byte) error {
	f.mu.RLock()
	err := f.putErr
	f.mu.RUnlock()
	if err != nil {
		return err
	}
	return f.Backend.Put(ctx, key, value)
}

// Presence records typing indicators and serves a settable active platform.
type Presence struct {
	mu       sync.Mutex
	platform messaging.Platform
	typing   map[int64]bool
}

// NewPresence returns a presence starting on platform.
func NewPresence(platform messaging.Platform) *Presence {
	return &Presence{platform: platform, typing: make(map[int64]bool)}
}

func (p *Presence) ActivePlatform() messaging.Platform {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.platform
}

func (p *Presence) SetActivePlatform(platform messaging.Platform) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.platform = platform
}

func (p *Presence) SetTyping(conversationID int64, typing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.typing[conversationID] = typing
}

// Typing reports the last typing state set for a conversation.
func (p *Presence) Typing(conversationID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typing[conversationID]
}
