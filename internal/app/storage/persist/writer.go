package persist

import (
	"context"
	"encoding/json"
	"sync"

	"golang.org/x/time/rate"

	"github.com/sarkhq/console/internal/app/metrics"
	"github.com/sarkhq/console/internal/app/storage/kv"
	"github.com/sarkhq/console/internal/app/system"
	"github.com/sarkhq/console/pkg/logger"
)

var _ system.Service = (*Writer)(nil)

// WriterOptions bounds how fast queued values reach the backend.
type WriterOptions struct {
	// RatePerSecond caps backend writes. Zero means unlimited.
	RatePerSecond float64
	Burst         int
}

// Writer drains queued values to the backend in the background. Only the
// latest value queued for a key is written.
type Writer struct {
	backend kv.Backend
	log     *logger.Logger
	limiter *rate.Limiter

	mu      sync.Mutex
	pending map[string][]byte
	order   []string

	// writeMu keeps a flush and the background loop from reordering writes
	// of the same key.
	writeMu sync.Mutex

	wake    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewWriter creates a writer. It queues values immediately but only drains
// them in the background once started.
func NewWriter(backend kv.Backend, opts WriterOptions, log *logger.Logger) *Writer {
	if log == nil {
		log = logger.NewDefault("persist-writer")
	}
	limit := rate.Inf
	burst := opts.Burst
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Writer{
		backend: backend,
		log:     log,
		limiter: rate.NewLimiter(limit, burst),
		pending: make(map[string][]byte),
		wake:    make(chan struct{}, 1),
	}
}

func (w *Writer) Name() string { return "persist-writer" }

// Persist encodes value now and queues it for key. Encoding failures are
// logged and dropped.
func (w *Writer) Persist(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		metrics.RecordPersistWrite(false)
		w.log.WithField("key", key).WithError(err).Warn("encode value")
		return
	}
	w.Enqueue(key, data)
}

// Enqueue queues raw bytes for key, replacing anything still pending for it.
func (w *Writer) Enqueue(key string, data []byte) {
	w.mu.Lock()
	if _, ok := w.pending[key]; !ok {
		w.order = append(w.order, key)
	}
	w.pending[key] = data
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of keys waiting to be written.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.order)
}

// Discard drops every pending write and returns how many were dropped. A
// write already in flight completes before Discard returns.
func (w *Writer) Discard() int {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.order)
	w.pending = make(map[string][]byte)
	w.order = nil
	return n
}

// Flush writes everything pending, ignoring the rate limit.
func (w *Writer) Flush(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !w.writeNext(ctx) {
			return nil
		}
	}
}

// Start launches the background drain loop.
func (w *Writer) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(loopCtx)
	}()
	w.log.Info("persist writer started")
	return nil
}

// Stop ends the drain loop and flushes what is left.
func (w *Writer) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.Flush(ctx)
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
	err := w.Flush(ctx)
	w.log.Info("persist writer stopped")
	return err
}

func (w *Writer) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.wake:
		}
		for w.Pending() > 0 {
			if err := w.limiter.Wait(ctx); err != nil {
				return
			}
			if !w.writeNext(ctx) {
				break
			}
		}
	}
}

func (w *Writer) writeNext(ctx context.Context) bool {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.Lock()
	if len(w.order) == 0 {
		w.mu.Unlock()
		return false
	}
	key := w.order[0]
	w.order = w.order[1:]
	data := w.pending[key]
	delete(w.pending, key)
	w.mu.Unlock()

	if err := w.backend.Put(context.WithoutCancel(ctx), key, data); err != nil {
		metrics.RecordPersistWrite(false)
		w.log.WithField("key", key).WithError(err).Warn("write value")
		return true
	}
	metrics.RecordPersistWrite(true)
	return true
}
