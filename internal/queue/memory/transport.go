// Package memory is an in-process queue.Transport with the same consumer-group
// semantics as the Redis transport. It backs the package tests and local runs
// without Redis.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/DhruvAgrawal511/xeno-backend/internal/queue"
)

// Options tunes redelivery behaviour
type Options struct {
	// ReclaimIdle is how long an entry stays pending before another read may
	// claim it. Zero disables reclaiming.
	ReclaimIdle time.Duration
	// GroupStartID is "0" to start new groups at the head of the stream or "$"
	// to start at the tail.
	GroupStartID string
}

type record struct {
	id      string
	event   string
	payload []byte
}

type pendingEntry struct {
	index       int
	consumer    string
	deliveredAt time.Time
	deliveries  int64
}

type group struct {
	next    int
	pending map[string]*pendingEntry
}

type stream struct {
	records []record
	groups  map[string]*group
}

type Transport struct {
	mu      sync.Mutex
	streams map[string]*stream
	notify  chan struct{}
	opts    Options
	now     func() time.Time
	lastMs  int64
	seq     int64
}

var _ queue.Transport = (*Transport)(nil)

func New(opts Options) *Transport {
	if opts.GroupStartID == "" {
		opts.GroupStartID = "0"
	}
	return &Transport{
		streams: make(map[string]*stream),
		notify:  make(chan struct{}),
		opts:    opts,
		now:     time.Now,
	}
}

func (t *Transport) streamLocked(name string) *stream {
	s, ok := t.streams[name]
	if !ok {
		s = &stream{groups: make(map[string]*group)}
		t.streams[name] = s
	}
	return s
}

func (t *Transport) nextIDLocked() string {
	ms := t.now().UnixMilli()
	if ms <= t.lastMs {
		ms = t.lastMs
		t.seq++
	} else {
		t.lastMs = ms
		t.seq = 0
	}
	return fmt.Sprintf("%d-%d", ms, t.seq)
}

func (t *Transport) Append(ctx context.Context, name, event string, payload []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.streamLocked(name)
	id := t.nextIDLocked()
	s.records = append(s.records, record{id: id, event: event, payload: append([]byte(nil), payload...)})

	close(t.notify)
	t.notify = make(chan struct{})
	return id, nil
}

func (t *Transport) EnsureGroup(ctx context.Context, name, groupName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.streamLocked(name)
	if _, ok := s.groups[groupName]; ok {
		return nil
	}

	next := 0
	if t.opts.GroupStartID == "$" {
		next = len(s.records)
	}
	s.groups[groupName] = &group{next: next, pending: make(map[string]*pendingEntry)}
	return nil
}

func (t *Transport) ReadBatch(ctx context.Context, name, groupName, consumer string, count int64, block time.Duration) ([]queue.Entry, error) {
	if count <= 0 {
		count = 1
	}

	var timeout <-chan time.Time
	if block > 0 {
		timer := time.NewTimer(block)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t.mu.Lock()
		entries, err := t.readLocked(name, groupName, consumer, int(count))
		wait := t.notify
		t.mu.Unlock()

		if err != nil {
			return nil, err
		}
		if len(entries) > 0 || block < 0 {
			return entries, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, nil
		case <-wait:
		}
	}
}

func (t *Transport) readLocked(name, groupName, consumer string, count int) ([]queue.Entry, error) {
	s, ok := t.streams[name]
	if !ok {
		return nil, queue.ErrNoGroup
	}
	g, ok := s.groups[groupName]
	if !ok {
		return nil, queue.ErrNoGroup
	}

	now := t.now()
	var entries []queue.Entry

	if t.opts.ReclaimIdle > 0 {
		for _, p := range g.idleLocked(now, t.opts.ReclaimIdle) {
			if len(entries) == count {
				break
			}
			p.consumer = consumer
			p.deliveredAt = now
			p.deliveries++
			entries = append(entries, toEntry(s.records[p.index], p.deliveries))
		}
	}

	for len(entries) < count && g.next < len(s.records) {
		rec := s.records[g.next]
		g.pending[rec.id] = &pendingEntry{index: g.next, consumer: consumer, deliveredAt: now, deliveries: 1}
		entries = append(entries, toEntry(rec, 1))
		g.next++
	}

	return entries, nil
}

// idleLocked returns pending entries idle for at least minIdle in stream order
func (g *group) idleLocked(now time.Time, minIdle time.Duration) []*pendingEntry {
	var idle []*pendingEntry
	for _, p := range g.pending {
		if now.Sub(p.deliveredAt) >= minIdle {
			idle = append(idle, p)
		}
	}
	sort.Slice(idle, func(i, j int) bool { return idle[i].index < idle[j].index })
	return idle
}

func toEntry(rec record, deliveries int64) queue.Entry {
	return queue.Entry{
		ID:         rec.id,
		Event:      rec.event,
		Payload:    append([]byte(nil), rec.payload...),
		Deliveries: deliveries,
	}
}

func (t *Transport) Ack(ctx context.Context, name, groupName, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.streams[name]
	if !ok {
		return queue.ErrNoGroup
	}
	g, ok := s.groups[groupName]
	if !ok {
		return queue.ErrNoGroup
	}
	delete(g.pending, id)
	return nil
}

// Len returns the number of entries appended to the stream
func (t *Transport) Len(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.streams[name]; ok {
		return len(s.records)
	}
	return 0
}

// Pending returns the number of delivered but unacknowledged entries of the group
func (t *Transport) Pending(name, groupName string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.streams[name]
	if !ok {
		return 0
	}
	if g, ok := s.groups[groupName]; ok {
		return len(g.pending)
	}
	return 0
}

// Entries returns a copy of every entry in the stream
func (t *Transport) Entries(name string) []queue.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.streams[name]
	if !ok {
		return nil
	}
	entries := make([]queue.Entry, 0, len(s.records))
	for _, rec := range s.records {
		entries = append(entries, toEntry(rec, 0))
	}
	return entries
}
