// Package snmprange implements the OID range algebra: closed intervals under
// lexicographic order, their canonical ordering, and the overlap-coalescing
// canonicalisation used to turn a caller's range list into the minimal set of
// non-overlapping ranges a walk needs to cover.
package snmprange

import (
	"fmt"
	"sort"

	"github.com/higherorderfunctor/snmp-stream/internal/oid"
)

// Range is a closed interval of OIDs under lexicographic order. Either bound
// may be absent: an absent start means "lowest possible", an absent stop
// means "highest possible".
type Range struct {
	start    oid.OID
	hasStart bool
	stop     oid.OID
	hasStop  bool
}

// New constructs a range from optional bounds. A construction with both
// bounds present and start > stop fails.
func New(start, stop *oid.OID) (Range, error) {
	r := Range{}
	if start != nil {
		r.start, r.hasStart = *start, true
	}
	if stop != nil {
		r.stop, r.hasStop = *stop, true
	}
	if r.hasStart && r.hasStop && r.start.Greater(r.stop) {
		return Range{}, fmt.Errorf("%w: %s is not lexicographically less than or equal to %s", ErrInvalidRange, r.start, r.stop)
	}
	return r, nil
}

// Point constructs a non-empty point range (start == stop == o).
func Point(o oid.OID) Range {
	return Range{start: o, hasStart: true, stop: o, hasStop: true}
}

// Unbounded is the range with both bounds absent: covers everything.
var Unbounded = Range{}

// ErrInvalidRange is returned by New when start is not <= stop.
var ErrInvalidRange = fmt.Errorf("invalid range")

// Start returns the start bound and whether it is present.
func (r Range) Start() (oid.OID, bool) { return r.start, r.hasStart }

// Stop returns the stop bound and whether it is present.
func (r Range) Stop() (oid.OID, bool) { return r.stop, r.hasStop }

// IsPoint reports whether this is a non-empty point range (start == stop,
// both present).
func (r Range) IsPoint() bool {
	return r.hasStart && r.hasStop && r.start.Equal(r.stop)
}

// Equal reports bound-wise equality.
func (r Range) Equal(other Range) bool {
	return r.hasStart == other.hasStart && r.hasStop == other.hasStop &&
		(!r.hasStart || r.start.Equal(other.start)) &&
		(!r.hasStop || r.stop.Equal(other.stop))
}

// Less implements the canonical ordering used to sort range lists before
// coalescing: absent start sorts first ("lowest possible"); on a start tie,
// the wider range (larger/absent stop) sorts first so folding always extends
// the leading range.
func (r Range) Less(rhs Range) bool {
	switch {
	case !r.hasStart && !r.hasStop:
		// lhs = (N, N)
		if !rhs.hasStart && !rhs.hasStop {
			return false
		}
		return true
	case !r.hasStart: // lhs = (N, V)
		switch {
		case !rhs.hasStart && !rhs.hasStop:
			return false
		case !rhs.hasStart: // rhs = (N, V)
			return r.stop.Greater(rhs.stop)
		default: // rhs has a start
			return true
		}
	case !r.hasStop: // lhs = (V, N)
		switch {
		case !rhs.hasStart:
			return false
		case !rhs.hasStop: // rhs = (V, N)
			return r.start.Less(rhs.start)
		default: // rhs = (V, V)
			return r.start.LessOrEqual(rhs.start)
		}
	default: // lhs = (V, V)
		switch {
		case !rhs.hasStart:
			return false
		case !rhs.hasStop: // rhs = (V, N)
			return r.start.Less(rhs.start)
		default: // rhs = (V, V)
			return r.start.Less(rhs.start) || (r.start.Equal(rhs.start) && r.stop.Greater(rhs.stop))
		}
	}
}

// String renders the range for logging and error messages.
func (r Range) String() string {
	start, stop := "None", "None"
	if r.hasStart {
		start = r.start.String()
	}
	if r.hasStop {
		stop = r.stop.String()
	}
	return fmt.Sprintf("Range(start=%s, stop=%s)", start, stop)
}

// OptimizeGet canonicalises ranges for a GET request: every range must be a
// non-empty point; duplicates are removed, order preserved.
func OptimizeGet(ranges []Range) ([]Range, error) {
	if len(ranges) == 0 {
		return nil, nil
	}
	for _, r := range ranges {
		if !r.IsPoint() {
			return nil, fmt.Errorf("%w: GET request only supports point ranges: %s", ErrInvalidRange, r)
		}
	}
	out := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		dup := false
		for _, seen := range out {
			if seen.Equal(r) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out, nil
}

// OptimizeWalk canonicalises ranges for a WALK request: sorts by the
// canonical ordering, deduplicates exact matches, then folds left to right
// coalescing overlapping or touching ranges. A nil result means "no ranges"
// (full walk from each root).
func OptimizeWalk(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	dedup := sorted[:0:0]
	for i, r := range sorted {
		if i > 0 && r.Equal(sorted[i-1]) {
			continue
		}
		dedup = append(dedup, r)
	}

	out := make([]Range, 0, len(dedup))
	for _, r := range dedup {
		if len(out) == 0 {
			out = append(out, r)
			continue
		}
		tail := &out[len(out)-1]
		if !tail.hasStop {
			// tail already covers everything to the right
			break
		}
		if tail.hasStart == r.hasStart && (!tail.hasStart || tail.start.Equal(r.start)) {
			// sort order guarantees tail is at least as wide
			continue
		}
		overlaps := !r.hasStart || tail.stop.GreaterOrEqual(r.start)
		if overlaps {
			if !r.hasStop {
				tail.hasStop = false
				tail.stop = oid.OID{}
			} else if tail.stop.Less(r.stop) {
				tail.stop = r.stop
			}
			continue
		}
		out = append(out, r)
	}

	if len(out) == 1 && !out[0].hasStart && !out[0].hasStop {
		return nil
	}
	return out
}
