package storefront

import (
	"sync"
	"time"

	"github.com/saborytradicion/storefront/internal/domain"
)

// Notices is the outbound queue of user-visible messages. Mutations push,
// a consumer outside the mutation path drains. A nil *Notices discards.
type Notices struct {
	mu    sync.Mutex
	queue []domain.Notice
	ready chan struct{}
	now   func() time.Time
}

func NewNotices() *Notices {
	return &Notices{ready: make(chan struct{}, 1), now: time.Now}
}

// Push appends a notice and wakes the consumer
func (n *Notices) Push(kind domain.NoticeKind, title, message string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.queue = append(n.queue, domain.Notice{Kind: kind, Title: title, Message: message, At: n.now()})
	n.mu.Unlock()

	select {
	case n.ready <- struct{}{}:
	default:
	}
}

// Drain returns queued notices in push order and empties the queue
func (n *Notices) Drain() []domain.Notice {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.queue
	n.queue = nil
	return out
}

// Len is the number of notices waiting
func (n *Notices) Len() int {
	if n == nil {
		return 0
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queue)
}

// Ready fires after at least one Push since the last receive. A nil
// queue never fires.
func (n *Notices) Ready() <-chan struct{} {
	if n == nil {
		return nil
	}
	return n.ready
}
