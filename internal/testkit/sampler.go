// Package testkit draws random stamps and members of stamps, and checks the
// structural invariants every stamp must keep. The checker and the package
// tests share it so both probe the lattice the same way.
package testkit

import (
	"math"
	"math/rand/v2"

	"numstamp/internal/numutil"
	"numstamp/internal/stamp"
)

// Sampler draws stamps and values from a seeded source. It is not safe for
// concurrent use; give every goroutine its own.
type Sampler struct {
	r *rand.Rand
}

// NewSampler returns a sampler whose draws depend only on seed.
func NewSampler(seed uint64) *Sampler {
	return &Sampler{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// IntN returns a value in [0, n).
func (s *Sampler) IntN(n int) int { return s.r.IntN(n) }

// IntValue draws a value of the width, biased towards the edges where
// transfer functions tend to go wrong.
func (s *Sampler) IntValue(bits int) int64 {
	switch s.r.IntN(3) {
	case 0:
		edges := [...]int64{
			numutil.MinValue(bits), numutil.MinValue(bits) + 1, -1, 0, 1,
			numutil.MaxValue(bits) - 1, numutil.MaxValue(bits),
		}
		return numutil.SignExtend(edges[s.r.IntN(len(edges))], bits)
	case 1:
		return numutil.SignExtend(s.r.Int64N(33)-16, bits)
	}
	return numutil.SignExtend(int64(s.r.Uint64()), bits)
}

// Integer draws a non-empty integer stamp: a constant, a range, a stamp
// described by masks, or the unrestricted stamp.
func (s *Sampler) Integer(bits int) *stamp.IntegerStamp {
	switch s.r.IntN(8) {
	case 0:
		return stamp.IntegerConstant(bits, s.IntValue(bits))
	case 1:
		return stamp.UnrestrictedInteger(bits)
	case 2, 3:
		mask := numutil.Mask(bits)
		may := s.r.Uint64() & mask
		must := may & s.r.Uint64()
		return stamp.StampForMask(bits, must, may)
	}
	a, b := s.IntValue(bits), s.IntValue(bits)
	return stamp.IntegerRange(bits, min(a, b), max(a, b))
}

// IntegerMembers returns up to n members of st, always starting with its
// bounds. st must not be empty.
func (s *Sampler) IntegerMembers(st *stamp.IntegerStamp, n int) []int64 {
	lo, hi := st.LowerBound(), st.UpperBound()
	out := make([]int64, 0, n)
	out = append(out, lo)
	if hi != lo {
		out = append(out, hi)
	}
	if st.Contains(0) && lo != 0 && hi != 0 {
		out = append(out, 0)
	}
	span := uint64(hi) - uint64(lo)
	for attempts := 0; len(out) < n && attempts < 8*n; attempts++ {
		var v int64
		if attempts%2 == 0 {
			// Fill the unknown bits around the known ones.
			v = numutil.SignExtend(int64(st.MustBeSet()|(s.r.Uint64()&st.MayBeSet())), st.Bits())
		} else if span == math.MaxUint64 {
			v = int64(s.r.Uint64())
		} else {
			v = int64(uint64(lo) + s.r.Uint64N(span+1))
		}
		if st.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// floatEdges are the values float stamps are most often built from.
var floatEdges = [...]float64{
	math.Inf(-1), -math.MaxFloat64, -1e10, -3, -1, -0.5, -math.SmallestNonzeroFloat64,
	0, math.SmallestNonzeroFloat64, 0x1p-1022, 0.5, 1, 2, 3, 1e10, math.MaxFloat64, math.Inf(1),
}

// FloatValue draws a value exactly representable at the width.
func (s *Sampler) FloatValue(bits int) float64 {
	var f float64
	switch s.r.IntN(3) {
	case 0:
		f = floatEdges[s.r.IntN(len(floatEdges))]
	case 1:
		f = float64(s.r.IntN(65) - 32)
	default:
		f = s.r.NormFloat64() * math.Pow(10, float64(s.r.IntN(12)-4))
	}
	if bits == 32 {
		return numutil.RoundFloat32(f)
	}
	return f
}

// Float draws a non-empty float stamp.
func (s *Sampler) Float(bits int) *stamp.FloatStamp {
	switch s.r.IntN(10) {
	case 0:
		return stamp.NaNFloat(bits)
	case 1:
		return stamp.UnrestrictedFloat(bits)
	case 2:
		f := s.FloatValue(bits)
		return stamp.ForFloat(bits, f, f, true)
	}
	a, b := s.FloatValue(bits), s.FloatValue(bits)
	return stamp.ForFloat(bits, min(a, b), max(a, b), s.r.IntN(3) != 0)
}

// FloatMembers returns up to n members of st: its bounds, zero and NaN when
// contained, then values spread over the range.
func (s *Sampler) FloatMembers(st *stamp.FloatStamp, n int) []float64 {
	out := make([]float64, 0, n)
	if st.CanBeNaN() {
		out = append(out, math.NaN())
	}
	if st.IsNaN() {
		return out
	}
	lo, hi := st.LowerBound(), st.UpperBound()
	out = append(out, lo, hi)
	if st.Contains(0) {
		out = append(out, 0, math.Copysign(0, -1))
	}
	for attempts := 0; len(out) < n && attempts < 4*n; attempts++ {
		var f float64
		if !math.IsInf(lo, 0) && !math.IsInf(hi, 0) && attempts%2 == 0 {
			f = lo + (hi-lo)*s.r.Float64()
			if math.IsInf(f, 0) {
				f = lo/2 + hi/2
			}
		} else {
			f = s.FloatValue(st.Bits())
		}
		if st.Bits() == 32 {
			f = numutil.RoundFloat32(f)
		}
		if st.Contains(f) {
			out = append(out, f)
		}
	}
	return out
}
