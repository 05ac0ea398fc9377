package trace

import "time"

// Kind says what an event marks.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint     // an instant, such as a violation
	KindHeartbeat // liveness, see StartHeartbeat
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string { return lookupName(kindNames[:], int(k)) }

// Scope is the granularity of an event; smaller is coarser.
type Scope uint8

const (
	ScopeRun  Scope = iota + 1 // a whole command invocation
	ScopeOp                    // one operator at one width
	ScopeCase                  // a single stamp or sample
)

var scopeNames = [...]string{
	ScopeRun:  "run",
	ScopeOp:   "op",
	ScopeCase: "case",
}

func (s Scope) String() string { return lookupName(scopeNames[:], int(s)) }

func lookupName(names []string, i int) string {
	if i > 0 && i < len(names) {
		return names[i]
	}
	return "unknown"
}

// Event is one trace record. Seq is filled in by the first tracer that
// sees the event.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64 // 0 for points and heartbeats
	ParentID uint64 // 0 for a root span
	GID      uint64 // emitting goroutine
	Name     string // "check", "add/i32", "laws/f64"
	Detail   string
	Extra    map[string]string // end events only
}
