package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/observability/metrics"
)

// NoticeSource is the queue the dispatcher drains
type NoticeSource interface {
	Drain() []domain.Notice
	Ready() <-chan struct{}
}

// NoticeSink presents notices to the user
type NoticeSink interface {
	Deliver(n domain.Notice) error
}

// NoticeDispatcher moves notices from the store queue to a sink outside of
// the mutation that produced them
type NoticeDispatcher struct {
	source   NoticeSource
	sink     NoticeSink
	logger   *slog.Logger
	interval time.Duration

	mu sync.Mutex // serializes deliveries between Start and Flush
}

// NewNoticeDispatcher creates a dispatcher that also polls every interval
func NewNoticeDispatcher(source NoticeSource, sink NoticeSink, logger *slog.Logger, interval time.Duration) *NoticeDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &NoticeDispatcher{source: source, sink: sink, logger: logger, interval: interval}
}

// Start delivers notices until ctx is done, then flushes what is left
func (d *NoticeDispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Debug("notice dispatcher started", slog.Duration("interval", d.interval))

	for {
		select {
		case <-ctx.Done():
			d.Flush()
			d.logger.Debug("notice dispatcher stopped")
			return
		case <-d.source.Ready():
			d.Flush()
		case <-ticker.C:
			d.Flush()
		}
	}
}

// Flush delivers every queued notice now and returns how many were delivered
func (d *NoticeDispatcher) Flush() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	delivered := 0
	for _, n := range d.source.Drain() {
		if err := d.sink.Deliver(n); err != nil {
			d.logger.Warn("failed to deliver notice",
				slog.String("title", n.Title),
				slog.String("error", err.Error()),
			)
			continue
		}
		metrics.ObserveNotice(string(n.Kind))
		delivered++
	}
	return delivered
}

// WriterSink prints notices as single lines, e.g. to stderr for the CLI
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Deliver(n domain.Notice) error {
	marker := "i"
	switch n.Kind {
	case domain.NoticeSuccess:
		marker = "✓"
	case domain.NoticeDestructive:
		marker = "✗"
	}
	if n.Message == "" {
		_, err := fmt.Fprintf(s.W, "%s %s\n", marker, n.Title)
		return err
	}
	_, err := fmt.Fprintf(s.W, "%s %s: %s\n", marker, n.Title, n.Message)
	return err
}
