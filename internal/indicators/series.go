// Package indicators computes technical indicators over a whole price vector in one pass.
// Every indicator returns a Series aligned index-for-index with its input; indices without
// enough history are left undefined.
package indicators

// Value is one possibly-undefined indicator reading.
type Value struct {
	V  float64
	OK bool
}

// Series is a sparse indicator output aligned with the input prices.
type Series []Value

func newSeries(n int) Series {
	return make(Series, n)
}

// At returns the value at i and whether it is defined. Out of range indices are undefined.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) {
		return 0, false
	}
	return s[i].V, s[i].OK
}

func (s Series) set(i int, v float64) {
	s[i] = Value{V: v, OK: true}
}

// Compact returns the defined values in order together with their original indices.
func (s Series) Compact() ([]float64, []int) {
	vals := make([]float64, 0, len(s))
	idx := make([]int, 0, len(s))
	for i, v := range s {
		if v.OK {
			vals = append(vals, v.V)
			idx = append(idx, i)
		}
	}
	return vals, idx
}

// Expand places a series computed over a compacted vector back at the original indices.
func Expand(n int, compact Series, idx []int) Series {
	out := newSeries(n)
	for j, v := range compact {
		if j >= len(idx) {
			break
		}
		out[idx[j]] = v
	}
	return out
}

// MapDefined applies fn to the gap-free part of s and re-expands the result. It is how
// indicators that cannot cross undefined gaps (EMA) are layered on top of sparse ones.
func MapDefined(s Series, fn func([]float64) Series) Series {
	vals, idx := s.Compact()
	return Expand(len(s), fn(vals), idx)
}

// CrossedAbove reports whether a moved from at-or-below b at i-1 to above b at i.
// Both pairs must be defined.
func CrossedAbove(a, b Series, i int) bool {
	pa, ok1 := a.At(i - 1)
	pb, ok2 := b.At(i - 1)
	ca, ok3 := a.At(i)
	cb, ok4 := b.At(i)
	if !(ok1 && ok2 && ok3 && ok4) {
		return false
	}
	return pa <= pb && ca > cb
}

// CrossedBelow reports whether a moved from at-or-above b at i-1 to below b at i.
func CrossedBelow(a, b Series, i int) bool {
	pa, ok1 := a.At(i - 1)
	pb, ok2 := b.At(i - 1)
	ca, ok3 := a.At(i)
	cb, ok4 := b.At(i)
	if !(ok1 && ok2 && ok3 && ok4) {
		return false
	}
	return pa >= pb && ca < cb
}
