package trace

import "errors"

// MultiTracer sends every event to each of its targets.
type MultiTracer struct {
	targets []Tracer
	level   Level
}

// NewMultiTracer fans out to targets at the given level.
func NewMultiTracer(level Level, targets ...Tracer) *MultiTracer {
	return &MultiTracer{targets: targets, level: level}
}

// Emit assigns the sequence number once so all targets agree on it.
func (t *MultiTracer) Emit(ev *Event) {
	if ev.Seq == 0 {
		ev.Seq = NextSeq()
	}
	for _, tr := range t.targets {
		tr.Emit(ev)
	}
}

// Flush flushes every target and joins their errors.
func (t *MultiTracer) Flush() error {
	var errs []error
	for _, tr := range t.targets {
		errs = append(errs, tr.Flush())
	}
	return errors.Join(errs...)
}

// Close closes every target and joins their errors.
func (t *MultiTracer) Close() error {
	var errs []error
	for _, tr := range t.targets {
		errs = append(errs, tr.Close())
	}
	return errors.Join(errs...)
}

// Ring returns the first ring among the targets.
func (t *MultiTracer) Ring() (*RingTracer, bool) {
	for _, tr := range t.targets {
		if r, ok := RingOf(tr); ok {
			return r, true
		}
	}
	return nil, false
}

func (t *MultiTracer) Level() Level  { return t.level }
func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }

// RingOf finds the ring behind tr, if tr is a ring or fans out to one.
func RingOf(tr Tracer) (*RingTracer, bool) {
	switch v := tr.(type) {
	case *RingTracer:
		return v, true
	case *MultiTracer:
		return v.Ring()
	}
	return nil, false
}
