package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	for _, name := range []string{"off", "error", "phase", "detail", "debug"} {
		lvl, err := ParseLevel(strings.ToUpper(name))
		if err != nil || lvl.String() != name {
			t.Fatalf("ParseLevel(%q) = %v, %v", name, lvl, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestShouldEmit(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeRun, false},
		{LevelError, ScopeRun, false},
		{LevelPhase, ScopeRun, true},
		{LevelPhase, ScopeOp, false},
		{LevelDetail, ScopeOp, true},
		{LevelDetail, ScopeCase, false},
		{LevelDebug, ScopeCase, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Fatalf("%s.ShouldEmit(%s) = %v", tc.level, tc.scope, got)
		}
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)
	run := Begin(tr, ScopeRun, "check", 0)
	op := Begin(tr, ScopeOp, "add/i32", run.ID())
	Begin(tr, ScopeCase, "filtered", op.ID()).End("")
	op.WithExtra("cases", "10").WithExtra("bad", "0").End("ok")
	run.End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "  → add/i32") {
		t.Fatalf("op begin line = %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "← add/i32 (ok) {bad=0, cases=10}") {
		t.Fatalf("op end line = %q", lines[2])
	}
}

func TestStreamTracerNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Point(tr, ScopeCase, "violation", "add/i8", 7)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if got["kind"] != "point" || got["scope"] != "case" || got["detail"] != "add/i8" || got["parent_id"] != float64(7) {
		t.Fatalf("unexpected event %v", got)
	}
}

func TestRingTracerWraps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for i := range 5 {
		r.Emit(&Event{Kind: KindPoint, Scope: ScopeCase, Name: string(rune('a' + i))})
	}
	events := r.Snapshot()
	if len(events) != 3 || events[0].Name != "c" || events[2].Name != "e" {
		t.Fatalf("unexpected ring contents %+v", events)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Fatalf("ring not in order: %+v", events)
		}
	}
}

func TestRingKeepsOpsAtErrorLevel(t *testing.T) {
	r := NewRingTracer(8, LevelError)
	r.Emit(&Event{Kind: KindSpanBegin, Scope: ScopeOp, Name: "mul/i64"})
	r.Emit(&Event{Kind: KindPoint, Scope: ScopeCase, Name: "sample"})
	if got := r.Snapshot(); len(got) != 1 || got[0].Name != "mul/i64" {
		t.Fatalf("unexpected ring contents %+v", got)
	}
}

func TestMultiTracerSharesSeq(t *testing.T) {
	var buf bytes.Buffer
	ring := NewRingTracer(4, LevelPhase)
	m := NewMultiTracer(LevelPhase, NewStreamTracer(&buf, LevelPhase, FormatNDJSON), ring)
	Begin(m, ScopeRun, "scenario", 0).End("")

	var first map[string]any
	if err := json.Unmarshal([]byte(strings.SplitN(buf.String(), "\n", 2)[0]), &first); err != nil {
		t.Fatal(err)
	}
	if got, ok := m.Ring(); !ok || got != ring {
		t.Fatalf("Ring() did not find the ring tracer")
	}
	if uint64(first["seq"].(float64)) != ring.Snapshot()[0].Seq {
		t.Fatalf("stream and ring disagree on seq")
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("New(off) = %v, %v", tr, err)
	}
	if s := Begin(tr, ScopeRun, "x", 0); s.ID() != 0 || s.End("") != 0 {
		t.Fatalf("span on disabled tracer should be inert")
	}
}

func TestNewPicksFormatFromPath(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeStream, Output: &buf, OutputPath: "run.ndjson"})
	if err != nil {
		t.Fatal(err)
	}
	Point(tr, ScopeRun, "start", "", 0)
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected ndjson, got %q", buf.String())
	}
}

func TestContextPropagation(t *testing.T) {
	ring := NewRingTracer(8, LevelDetail)
	ctx := WithTracer(context.Background(), ring)
	ctx, run := BeginContext(ctx, ScopeRun, "check")
	_, op := BeginContext(ctx, ScopeOp, "neg/i8")
	if op.parentID != run.ID() {
		t.Fatalf("op parent = %d, want %d", op.parentID, run.ID())
	}
	if FromContext(context.Background()) != Nop {
		t.Fatalf("empty context should give Nop")
	}
}

func TestHeartbeat(t *testing.T) {
	ring := NewRingTracer(16, LevelPhase)
	h := StartHeartbeat(ring, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for len(ring.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()
	if len(ring.Snapshot()) == 0 {
		t.Fatalf("no heartbeat recorded")
	}
	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatalf("heartbeat on disabled tracer should be nil")
	}
}

func TestBeatDetail(t *testing.T) {
	if got := beatDetail(3, 0); got != "#3 stalled" {
		t.Fatalf("idle beat = %q", got)
	}
	if got := beatDetail(1, 12); got != "#1 +12 events" {
		t.Fatalf("busy beat = %q", got)
	}
}

func TestRingOf(t *testing.T) {
	ring := NewRingTracer(2, LevelDetail)
	if got, ok := RingOf(ring); !ok || got != ring {
		t.Fatalf("RingOf(ring) failed")
	}
	var buf bytes.Buffer
	if _, ok := RingOf(NewStreamTracer(&buf, LevelDetail, FormatText)); ok {
		t.Fatalf("stream tracer has no ring")
	}
	tr, err := New(Config{Level: LevelDetail, Mode: ModeBoth, Output: &buf, RingSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	Begin(tr, ScopeRun, "check", 0).End("")
	Point(tr, ScopeOp, "violation", "sub/i16", 0)
	got, ok := RingOf(tr)
	if !ok || got.Len() != 2 {
		t.Fatalf("both mode ring = %v, %v", got, ok)
	}
	var dump bytes.Buffer
	if err := got.Dump(&dump, FormatText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(dump.String(), "← check") || !strings.Contains(dump.String(), "• violation (sub/i16)") {
		t.Fatalf("dump = %q", dump.String())
	}
}

func TestParseModeAndFormat(t *testing.T) {
	for _, m := range []StorageMode{ModeStream, ModeRing, ModeBoth} {
		if got, err := ParseMode(strings.ToUpper(m.String())); err != nil || got != m {
			t.Fatalf("ParseMode(%s) = %v, %v", m, got, err)
		}
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if f, err := ParseFormat("json"); err != nil || f != FormatNDJSON {
		t.Fatalf("json alias = %v, %v", f, err)
	}
	if _, err := New(Config{Level: LevelPhase, Mode: StorageMode(9)}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
