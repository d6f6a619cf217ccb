// Package oid implements the object-identifier primitives the collection
// engine is built on: an ordered sequence of unsigned sub-identifiers with
// lexicographic order, prefix testing, and concatenation.
package oid

import (
	"fmt"
	"strconv"
	"strings"
)

// SubID is a single OID sub-identifier. SNMP sub-identifiers are unsigned and
// may exceed 32 bits in modern stacks; this is down-converted to the
// transport's native width only at the transport boundary.
type SubID = uint64

// OID is an immutable, ordered sequence of sub-identifiers. A zero-length OID
// is legal and represents "unbounded" inside a range.
type OID struct {
	ids []SubID
}

// New constructs an OID from a slice of sub-identifiers. The slice is copied;
// the returned OID never aliases the caller's backing array.
func New(ids ...SubID) OID {
	if len(ids) == 0 {
		return OID{}
	}
	cp := make([]SubID, len(ids))
	copy(cp, ids)
	return OID{ids: cp}
}

// Len returns the number of sub-identifiers.
func (o OID) Len() int { return len(o.ids) }

// At returns the sub-identifier at index i.
func (o OID) At(i int) SubID { return o.ids[i] }

// Slice returns a defensive copy of the underlying sub-identifiers.
func (o OID) Slice() []SubID {
	if len(o.ids) == 0 {
		return nil
	}
	cp := make([]SubID, len(o.ids))
	copy(cp, o.ids)
	return cp
}

// IsZero reports whether this OID has zero length.
func (o OID) IsZero() bool { return len(o.ids) == 0 }

// Concat returns a new OID formed by appending other's sub-identifiers.
func (o OID) Concat(other OID) OID {
	if len(o.ids) == 0 {
		return other
	}
	if len(other.ids) == 0 {
		return o
	}
	cp := make([]SubID, 0, len(o.ids)+len(other.ids))
	cp = append(cp, o.ids...)
	cp = append(cp, other.ids...)
	return OID{ids: cp}
}

// Tail returns the sub-identifiers beyond the first n, used to compute the
// "index tail" of a response OID relative to its collection head's root.
func (o OID) Tail(n int) []SubID {
	if n >= len(o.ids) {
		return nil
	}
	return o.Slice()[n:]
}

// Compare returns -1, 0, or 1 per lexicographic total order.
func (o OID) Compare(other OID) int {
	n := len(o.ids)
	if len(other.ids) < n {
		n = len(other.ids)
	}
	for i := 0; i < n; i++ {
		if o.ids[i] < other.ids[i] {
			return -1
		}
		if o.ids[i] > other.ids[i] {
			return 1
		}
	}
	switch {
	case len(o.ids) < len(other.ids):
		return -1
	case len(o.ids) > len(other.ids):
		return 1
	default:
		return 0
	}
}

// Equal reports lexicographic equality.
func (o OID) Equal(other OID) bool { return o.Compare(other) == 0 }

// Less reports lhs < rhs.
func (o OID) Less(other OID) bool { return o.Compare(other) < 0 }

// LessOrEqual reports lhs <= rhs.
func (o OID) LessOrEqual(other OID) bool { return o.Compare(other) <= 0 }

// Greater reports lhs > rhs.
func (o OID) Greater(other OID) bool { return o.Compare(other) > 0 }

// GreaterOrEqual reports lhs >= rhs.
func (o OID) GreaterOrEqual(other OID) bool { return o.Compare(other) >= 0 }

// IsRootOf reports whether o is a root of other: len(o) <= len(other) and o
// equals the first len(o) elements of other. Reflexive and transitive.
func (o OID) IsRootOf(other OID) bool {
	if len(o.ids) > len(other.ids) {
		return false
	}
	for i, v := range o.ids {
		if other.ids[i] != v {
			return false
		}
	}
	return true
}

// String renders the OID dot-separated, e.g. ".1.3.6.1.2.1".
func (o OID) String() string {
	if len(o.ids) == 0 {
		return ""
	}
	parts := make([]string, len(o.ids))
	for i, v := range o.ids {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return "." + strings.Join(parts, ".")
}

// GoString implements the attrs-style repr used throughout the engine's
// logging and error messages.
func (o OID) GoString() string {
	return fmt.Sprintf("OID(%q)", o.String())
}
