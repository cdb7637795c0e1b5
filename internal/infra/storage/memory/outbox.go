package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "eventbook/internal/app/outbox"
)

type outboxState string

const (
	outboxNew     outboxState = "NEW"
	outboxClaimed outboxState = "CLAIMED"
	outboxSent    outboxState = "SENT"
	outboxFailed  outboxState = "FAILED"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	state     outboxState
	attempts  int
	nextRetry time.Time
	claimedBy string
	lastError string
}

// Outbox buffers added records until Flush and then serves them to the relay
// through the Queue methods.
type Outbox struct {
	mu      sync.Mutex
	pending []appoutbox.EventRecord
	entries []*outboxEntry
	index   map[string]*outboxEntry
	limit   int
	dropped int
	now     func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{index: make(map[string]*outboxEntry), now: time.Now}
}

// NewBoundedOutbox keeps at most limit flushed records. Past the limit Flush
// evicts sent records first, then the oldest of any state.
func NewBoundedOutbox(limit int) *Outbox {
	o := NewOutbox()
	if limit > 0 {
		o.limit = limit
	}
	return o
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range o.pending {
		if _, dup := o.index[rec.ID]; dup {
			continue
		}
		e := &outboxEntry{record: rec, state: outboxNew, nextRetry: o.now().UTC()}
		o.entries = append(o.entries, e)
		o.index[rec.ID] = e
	}
	o.pending = nil
	o.trim()
	return nil
}

func (o *Outbox) trim() {
	excess := len(o.entries) - o.limit
	if o.limit == 0 || excess <= 0 {
		return
	}
	evict := make(map[*outboxEntry]bool, excess)
	for _, e := range o.entries {
		if len(evict) == excess {
			break
		}
		if e.state == outboxSent {
			evict[e] = true
		}
	}
	for _, e := range o.entries {
		if len(evict) == excess {
			break
		}
		evict[e] = true
	}
	kept := o.entries[:0]
	for _, e := range o.entries {
		if evict[e] {
			delete(o.index, e.record.ID)
			continue
		}
		kept = append(kept, e)
	}
	clear(o.entries[len(kept):])
	o.entries = kept
	o.dropped += excess
}

// Dropped counts records evicted by the retention limit.
func (o *Outbox) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

// Claim hands out the oldest due record in insertion order.
func (o *Outbox) Claim(ctx context.Context, workerID string) (*appoutbox.Pending, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now().UTC()
	for _, e := range o.entries {
		if e.state != outboxNew && e.state != outboxFailed {
			continue
		}
		if e.nextRetry.After(now) {
			continue
		}
		e.state = outboxClaimed
		e.claimedBy = workerID
		return &appoutbox.Pending{EventRecord: e.record, Attempts: e.attempts}, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.index[id]; ok {
		e.state = outboxSent
		e.lastError = ""
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.index[id]; ok {
		e.state = outboxFailed
		e.attempts++
		e.nextRetry = next.UTC()
		e.lastError = errMsg
	}
	return nil
}

// Records returns every flushed record, in insertion order.
func (o *Outbox) Records() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.record)
	}
	return out
}

var (
	_ appoutbox.Outbox = (*Outbox)(nil)
	_ appoutbox.Queue  = (*Outbox)(nil)
)
