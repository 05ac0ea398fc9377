package trace

import (
	"io"
	"sync"
)

const defaultRingSize = 4096

// RingTracer keeps the most recent events in a fixed-size buffer so that a
// failed check can dump what led up to it.
type RingTracer struct {
	mu     sync.RWMutex
	buf    []Event
	next   int // slot the next event goes to
	stored int // number of valid slots, at most len(buf)
	level  Level
}

// NewRingTracer returns a ring holding up to capacity events. A capacity
// that is not positive selects the default size.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &RingTracer{buf: make([]Event, capacity), level: level}
}

// keeps reports whether ev belongs in the ring. At LevelError nothing is
// streamed, but run and op spans are still kept so a dump has context.
func (t *RingTracer) keeps(ev *Event) bool {
	switch {
	case ev.Kind == KindHeartbeat:
		return true
	case t.level == LevelError:
		return ev.Scope <= ScopeOp
	}
	return t.level.ShouldEmit(ev.Scope)
}

// Emit stores a copy of ev, evicting the oldest event when full.
func (t *RingTracer) Emit(ev *Event) {
	if !t.keeps(ev) {
		return
	}
	stored := *ev
	if stored.Seq == 0 {
		stored.Seq = NextSeq()
	}

	t.mu.Lock()
	t.buf[t.next] = stored
	t.next = (t.next + 1) % len(t.buf)
	t.stored = min(t.stored+1, len(t.buf))
	t.mu.Unlock()
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Event, 0, t.stored)
	start := t.next - t.stored
	if start < 0 {
		start += len(t.buf)
	}
	for i := range t.stored {
		out = append(out, t.buf[(start+i)%len(t.buf)])
	}
	return out
}

// Len reports how many events the ring currently holds.
func (t *RingTracer) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stored
}

// Dump writes the stored events to w, oldest first.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error  { return nil }
func (t *RingTracer) Close() error  { return nil }
func (t *RingTracer) Level() Level  { return t.level }
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
