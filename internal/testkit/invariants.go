package testkit

import (
	"fmt"
	"math"

	"numstamp/internal/numutil"
	"numstamp/internal/stamp"
)

// CheckInteger verifies the representation invariants of an integer stamp:
// masks inside the width, must a subset of may, both bounds members, and
// normalizing the stamp again is the identity.
func CheckInteger(s *stamp.IntegerStamp) error {
	w := s.Bits()
	mask := numutil.Mask(w)
	if s.IsEmpty() {
		if !s.Equal(stamp.EmptyInteger(w)) {
			return fmt.Errorf("%s: empty stamp is not the canonical empty encoding", s)
		}
		return nil
	}
	if s.MustBeSet()&^mask != 0 || s.MayBeSet()&^mask != 0 {
		return fmt.Errorf("%s: masks exceed i%d", s, w)
	}
	if s.MustBeSet()&^s.MayBeSet() != 0 {
		return fmt.Errorf("%s: must-be-set %#x not within may-be-set %#x", s, s.MustBeSet(), s.MayBeSet())
	}
	if s.LowerBound() < numutil.MinValue(w) || s.UpperBound() > numutil.MaxValue(w) {
		return fmt.Errorf("%s: bounds exceed i%d", s, w)
	}
	if !s.Contains(s.LowerBound()) || !s.Contains(s.UpperBound()) {
		return fmt.Errorf("%s: a bound is not a member", s)
	}
	again := stamp.CreateInteger(w, s.LowerBound(), s.UpperBound(), s.MustBeSet(), s.MayBeSet(), s.CanBeZero())
	if !again.Equal(s) {
		return fmt.Errorf("%s: not canonical, normalizes to %s", s, again)
	}
	return nil
}

// CheckFloat verifies the representation invariants of a float stamp.
func CheckFloat(s *stamp.FloatStamp) error {
	w := s.Bits()
	switch {
	case s.IsEmpty():
		if !s.Equal(stamp.EmptyFloat(w)) {
			return fmt.Errorf("%s: empty stamp is not the canonical empty encoding", s)
		}
		return nil
	case s.IsNaN():
		if s.IsNonNaN() || !math.IsNaN(s.UpperBound()) {
			return fmt.Errorf("%s: inconsistent NaN encoding", s)
		}
		return nil
	}
	lo, hi := s.LowerBound(), s.UpperBound()
	if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
		return fmt.Errorf("%s: malformed range", s)
	}
	if w == 32 && (numutil.RoundFloat32(lo) != lo || numutil.RoundFloat32(hi) != hi) {
		return fmt.Errorf("%s: bounds not representable as float32", s)
	}
	return nil
}

// Check dispatches to CheckInteger or CheckFloat; other kinds have no
// invariants beyond their constructors.
func Check(s stamp.Stamp) error {
	switch st := s.(type) {
	case *stamp.IntegerStamp:
		return CheckInteger(st)
	case *stamp.FloatStamp:
		return CheckFloat(st)
	}
	return nil
}
