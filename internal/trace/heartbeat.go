package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat emits a liveness event on a fixed interval. Each beat reports
// how many events were emitted since the previous one, and a beat that
// saw none is marked stalled so a stuck checker job stands out in the
// trace.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// StartHeartbeat starts beating on tracer. It returns nil when tracing is
// off or interval is not positive; Stop on nil is a no-op.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{tracer: tracer, interval: interval, done: make(chan struct{})}
	h.wg.Go(h.loop)
	return h
}

func (h *Heartbeat) loop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	gid := goroutineID()
	last := seqCounter.Load()
	for beat := uint64(1); ; beat++ {
		select {
		case <-h.done:
			return
		case now := <-ticker.C:
			seq := seqCounter.Load()
			h.tracer.Emit(&Event{
				Time:   now,
				Kind:   KindHeartbeat,
				Scope:  ScopeRun,
				GID:    gid,
				Name:   "heartbeat",
				Detail: beatDetail(beat, seq-last),
			})
			// Count the beat itself so an idle run reads as stalled.
			last = seq + 1
		}
	}
}

func beatDetail(beat, events uint64) string {
	if events == 0 {
		return fmt.Sprintf("#%d stalled", beat)
	}
	return fmt.Sprintf("#%d +%d events", beat, events)
}

// Stop ends the heartbeat and waits for its goroutine.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.done) })
	h.wg.Wait()
}
