package testkit

import (
	"math"
	"testing"

	"numstamp/internal/stamp"
)

func TestSamplerIsDeterministic(t *testing.T) {
	a, b := NewSampler(42), NewSampler(42)
	for i := 0; i < 100; i++ {
		x, y := a.Integer(32), b.Integer(32)
		if !x.Equal(y) {
			t.Fatalf("draw %d differs: %s vs %s", i, x, y)
		}
	}
}

func TestSampledStampsKeepInvariants(t *testing.T) {
	s := NewSampler(7)
	for _, w := range []int{1, 8, 16, 32, 64} {
		for i := 0; i < 200; i++ {
			st := s.Integer(w)
			if err := CheckInteger(st); err != nil {
				t.Fatalf("i%d draw %d: %v", w, i, err)
			}
			for _, v := range s.IntegerMembers(st, 16) {
				if !st.Contains(v) {
					t.Fatalf("member %d not in %s", v, st)
				}
			}
		}
	}
	for _, w := range []int{32, 64} {
		for i := 0; i < 200; i++ {
			st := s.Float(w)
			if err := CheckFloat(st); err != nil {
				t.Fatalf("f%d draw %d: %v", w, i, err)
			}
			for _, f := range s.FloatMembers(st, 8) {
				if !st.Contains(f) {
					t.Fatalf("member %v not in %s", f, st)
				}
			}
		}
	}
}

func TestFloatMembersOfNaN(t *testing.T) {
	got := NewSampler(1).FloatMembers(stamp.NaNFloat(64), 4)
	if len(got) != 1 || !math.IsNaN(got[0]) {
		t.Fatalf("members of NaN = %v", got)
	}
}

func TestCheckAcceptsCanonicalStamps(t *testing.T) {
	for _, s := range []stamp.Stamp{
		stamp.EmptyInteger(8), stamp.UnrestrictedInteger(64), stamp.True(),
		stamp.EmptyFloat(32), stamp.NaNFloat(32), stamp.UnrestrictedFloat(64), stamp.Object(),
	} {
		if err := Check(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
}

func TestCheckRejectsMalformedFloat(t *testing.T) {
	if err := CheckFloat(stamp.NewFloat(64, 3, 1, true)); err == nil {
		t.Fatalf("inverted bounds accepted")
	}
	if err := CheckFloat(stamp.NewFloat(32, 0.1, 0.1, true)); err == nil {
		t.Fatalf("inexact float32 bound accepted")
	}
}
