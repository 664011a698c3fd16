// Package usagelog buffers Usage Records in memory and flushes them in
// batches to a persistent Writer, per the gateway's Usage Logger
// component. Grounded on internal/requestlog/store.go's Entry/Writer
// split: a Record here plays the same role as requestlog's Entry, and
// SQLWriter reuses the teacher's dialect/DDL/bind pattern verbatim.
package usagelog

import (
	"context"
	"sync"
	"time"
)

// Record is the Usage Record data model entity.
type Record struct {
	Timestamp time.Time
	UserID    string
	ModelUsed string
	Provider  string
	LatencyMS int64
	Tokens    int
	Cost      float64
	Success   bool
	Cached    bool
	TaskType  string
	RequestID string
}

// Writer persists a batch of usage records.
type Writer interface {
	WriteBatch(ctx context.Context, records []Record) error
}

// NoopWriter discards every batch; used when no persistence is configured.
type NoopWriter struct{}

func (NoopWriter) WriteBatch(context.Context, []Record) error { return nil }

// Logger buffers Record values in memory and flushes them to a Writer
// once batchSize records have accumulated, or on an explicit Flush/Close.
type Logger struct {
	mu        sync.Mutex
	buf       []Record
	batchSize int
	writer    Writer
}

// New creates a Logger. batchSize<=0 defaults to 100, per spec.md's
// "flushed in batches (default 100)". writer may be nil, defaulting to
// NoopWriter.
func New(batchSize int, writer Writer) *Logger {
	if batchSize <= 0 {
		batchSize = 100
	}
	if writer == nil {
		writer = NoopWriter{}
	}
	return &Logger{batchSize: batchSize, writer: writer}
}

// Record appends a usage record to the buffer, flushing synchronously if
// the buffer has reached batchSize.
func (l *Logger) Record(ctx context.Context, r Record) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	l.buf = append(l.buf, r)
	shouldFlush := len(l.buf) >= l.batchSize
	l.mu.Unlock()

	if shouldFlush {
		return l.Flush(ctx)
	}
	return nil
}

// Flush writes every buffered record and clears the buffer, even if the
// write fails (records already attempted are not retried indefinitely).
func (l *Logger) Flush(ctx context.Context) error {
	l.mu.Lock()
	batch := l.buf
	l.buf = nil
	l.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return l.writer.WriteBatch(ctx, batch)
}

// Pending returns the number of buffered, not-yet-flushed records.
func (l *Logger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buf)
}

// Close flushes any remaining buffered records, per the Gateway's
// Shutdown() operation.
func (l *Logger) Close(ctx context.Context) error {
	return l.Flush(ctx)
}
