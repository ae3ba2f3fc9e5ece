// internal/writer/writer.go
package writer

import (
	"context"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"
)

// maxBufferedPoints caps the buffer while the sink is unreachable; the
// oldest points are dropped beyond it.
const maxBufferedPoints = 1000

// BatchWriter buffers points and flushes them to the sink when the batch
// size is reached or the flush interval elapses, whichever comes first.
// On a failed flush the buffer is kept for the next attempt. All methods
// are safe for concurrent use.
type BatchWriter struct {
	sink          Sink
	batchSize     int
	flushInterval time.Duration
	logger        *zap.Logger

	mu     sync.Mutex
	buffer []*write.Point

	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	stopped bool
}

// NewBatchWriter creates a writer; Start must be called before Append
func NewBatchWriter(sink Sink, batchSize int, flushInterval time.Duration, logger *zap.Logger) *BatchWriter {
	return &BatchWriter{
		sink:          sink,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        logger,
		buffer:        make([]*write.Point, 0, batchSize),
	}
}

// Start connects the sink and launches the periodic flush loop. Calling
// Start on a running writer is a no-op.
func (w *BatchWriter) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return nil
	}

	if err := w.sink.Connect(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.started = true

	go w.flushLoop(loopCtx)
	w.logger.Info("Batch writer started",
		zap.Int("batch_size", w.batchSize),
		zap.Duration("flush_interval", w.flushInterval),
	)
	return nil
}

// Append adds one point to the buffer, flushing immediately when the
// batch size is reached
func (w *BatchWriter) Append(point *write.Point) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buffer = append(w.buffer, point)
	if len(w.buffer) >= w.batchSize {
		w.flushLocked(context.Background())
	}
}

// AppendAll adds several points, flushing at most once
func (w *BatchWriter) AppendAll(points []*write.Point) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buffer = append(w.buffer, points...)
	if len(w.buffer) >= w.batchSize {
		w.flushLocked(context.Background())
	}
}

// Flush writes out whatever is buffered right now
func (w *BatchWriter) Flush(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked(ctx)
}

// BufferedPoints returns the current buffer length
func (w *BatchWriter) BufferedPoints() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buffer)
}

// flushLocked writes the buffer to the sink. On failure the points stay
// buffered, trimmed to the cap from the oldest end. Callers hold w.mu.
func (w *BatchWriter) flushLocked(ctx context.Context) {
	if len(w.buffer) == 0 {
		return
	}

	if err := w.sink.WriteBatch(ctx, w.buffer); err != nil {
		w.logger.Error("Failed to flush batch",
			zap.Int("points", len(w.buffer)),
			zap.Error(err),
		)
		if excess := len(w.buffer) - maxBufferedPoints; excess > 0 {
			w.buffer = w.buffer[excess:]
			w.logger.Warn("Dropped oldest buffered points",
				zap.Int("dropped", excess),
			)
		}
		return
	}

	w.logger.Debug("Flushed batch", zap.Int("points", len(w.buffer)))
	w.buffer = w.buffer[:0]
}

// flushLoop flushes on every tick until the writer stops
func (w *BatchWriter) flushLoop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Flush(context.Background())
		}
	}
}

// Stop halts the flush loop, performs a final flush and closes the sink.
// Safe to call more than once, and a no-op on a writer that never started.
func (w *BatchWriter) Stop(ctx context.Context) {
	w.mu.Lock()
	if !w.started || w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.Flush(ctx)
	w.sink.Close()
	w.logger.Info("Batch writer stopped")
}
