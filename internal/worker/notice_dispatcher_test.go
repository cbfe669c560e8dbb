package worker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/saborytradicion/storefront/internal/domain"
	"github.com/saborytradicion/storefront/internal/storefront"
)

type recordingSink struct {
	mu   sync.Mutex
	got  []domain.Notice
	fail string
}

func (r *recordingSink) Deliver(n domain.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.Title == r.fail {
		return errors.New("sink closed")
	}
	r.got = append(r.got, n)
	return nil
}

func (r *recordingSink) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.got))
	for i, n := range r.got {
		out[i] = n.Title
	}
	return out
}

func TestFlushDeliversInOrder(t *testing.T) {
	q := storefront.NewNotices()
	sink := &recordingSink{fail: "broken"}
	d := NewNoticeDispatcher(q, sink, nil, time.Hour)

	q.Push(domain.NoticeSuccess, "first", "")
	q.Push(domain.NoticeInfo, "broken", "")
	q.Push(domain.NoticeDestructive, "third", "")

	if n := d.Flush(); n != 2 {
		t.Fatalf("expected 2 delivered, got %d", n)
	}
	got := sink.titles()
	if len(got) != 2 || got[0] != "first" || got[1] != "third" {
		t.Fatalf("unexpected deliveries %v", got)
	}
	if q.Len() != 0 {
		t.Fatalf("queue should be drained")
	}
}

func TestStartDeliversAndFlushesOnStop(t *testing.T) {
	q := storefront.NewNotices()
	sink := &recordingSink{}
	d := NewNoticeDispatcher(q, sink, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	q.Push(domain.NoticeSuccess, "added", "")
	deadline := time.Now().Add(2 * time.Second)
	for len(sink.titles()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if len(sink.titles()) != 1 {
		t.Fatalf("expected the ready signal to trigger delivery")
	}

	cancel()
	<-done
	q.Push(domain.NoticeInfo, "late", "")
	d.Flush()
	if got := sink.titles(); len(got) != 2 || got[1] != "late" {
		t.Fatalf("unexpected deliveries %v", got)
	}
}

func TestStartWithNilQueue(t *testing.T) {
	var q *storefront.Notices
	sink := &recordingSink{}
	d := NewNoticeDispatcher(q, sink, nil, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.Start(ctx)

	if q.Ready() != nil {
		t.Fatalf("nil queue must expose a nil ready channel")
	}
	if len(sink.titles()) != 0 {
		t.Fatalf("nil queue delivered %v", sink.titles())
	}
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := WriterSink{W: &buf}
	_ = sink.Deliver(domain.Notice{Kind: domain.NoticeDestructive, Title: "Not available", Message: "Pozole is not available right now."})
	_ = sink.Deliver(domain.Notice{Kind: domain.NoticeSuccess, Title: "Signed out"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[0] != "✗ Not available: Pozole is not available right now." || lines[1] != "✓ Signed out" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
