package snmprange_test

import (
	"testing"

	"github.com/higherorderfunctor/snmp-stream/internal/oid"
	"github.com/higherorderfunctor/snmp-stream/internal/snmprange"
)

func o(vals ...oid.SubID) oid.OID { return oid.New(vals...) }

func ptr(v oid.OID) *oid.OID { return &v }

func TestNewRangeRejectsStartAfterStop(t *testing.T) {
	_, err := snmprange.New(ptr(o(2)), ptr(o(1)))
	if err == nil {
		t.Fatal("expected error for start > stop")
	}
}

func TestLessOrderingTable(t *testing.T) {
	unbounded := snmprange.Unbounded
	stopOnly := func(s oid.OID) snmprange.Range { r, _ := snmprange.New(nil, ptr(s)); return r }
	startOnly := func(s oid.OID) snmprange.Range { r, _ := snmprange.New(ptr(s), nil); return r }
	full := func(a, b oid.OID) snmprange.Range { r, _ := snmprange.New(ptr(a), ptr(b)); return r }

	cases := []struct {
		name     string
		lhs, rhs snmprange.Range
		want     bool
	}{
		{"NN < NN false", unbounded, unbounded, false},
		{"NN < NV true", unbounded, stopOnly(o(5)), true},
		{"NN < VN true", unbounded, startOnly(o(5)), true},
		{"NN < VV true", unbounded, full(o(1), o(5)), true},
		{"NV < NN false", stopOnly(o(5)), unbounded, false},
		{"NV < NV wider first", stopOnly(o(10)), stopOnly(o(5)), true},
		{"NV < NV narrower", stopOnly(o(5)), stopOnly(o(10)), false},
		{"NV < VN true", stopOnly(o(5)), startOnly(o(1)), true},
		{"NV < VV true", stopOnly(o(5)), full(o(1), o(2)), true},
		{"VN < NN false", startOnly(o(5)), unbounded, false},
		{"VN < NV false", startOnly(o(5)), stopOnly(o(1)), false},
		{"VN < VN lt start", startOnly(o(1)), startOnly(o(2)), true},
		{"VN < VN ge start", startOnly(o(2)), startOnly(o(1)), false},
		{"VN < VV le start true", startOnly(o(1)), full(o(1), o(2)), true},
		{"VN < VV gt start false", startOnly(o(2)), full(o(1), o(2)), false},
		{"VV < NN false", full(o(1), o(2)), unbounded, false},
		{"VV < NV false", full(o(1), o(2)), stopOnly(o(5)), false},
		{"VV < VN lt start", full(o(1), o(2)), startOnly(o(2)), true},
		{"VV < VV lt start", full(o(1), o(5)), full(o(2), o(3)), true},
		{"VV < VV eq start wider first", full(o(1), o(9)), full(o(1), o(5)), true},
		{"VV < VV eq start narrower", full(o(1), o(5)), full(o(1), o(9)), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.lhs.Less(c.rhs); got != c.want {
				t.Fatalf("%s.Less(%s) = %v, want %v", c.lhs, c.rhs, got, c.want)
			}
		})
	}
}

func TestOptimizeGetRequiresPoints(t *testing.T) {
	rng, _ := snmprange.New(ptr(o(1)), ptr(o(2)))
	if _, err := snmprange.OptimizeGet([]snmprange.Range{rng}); err == nil {
		t.Fatal("expected error for non-point GET range")
	}
}

func TestOptimizeGetDeduplicatesPreservingOrder(t *testing.T) {
	p1 := snmprange.Point(o(1))
	p2 := snmprange.Point(o(2))
	got, err := snmprange.OptimizeGet([]snmprange.Range{p2, p1, p2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || !got[0].Equal(p2) || !got[1].Equal(p1) {
		t.Fatalf("got %v, want [p2, p1] with dup removed", got)
	}
}

func TestOptimizeWalkCoalescesOverlaps(t *testing.T) {
	r1, _ := snmprange.New(ptr(o(1)), ptr(o(5)))
	r2, _ := snmprange.New(ptr(o(3)), ptr(o(8)))
	r3, _ := snmprange.New(ptr(o(20)), ptr(o(30)))
	got := snmprange.OptimizeWalk([]snmprange.Range{r1, r2, r3})
	if len(got) != 2 {
		t.Fatalf("expected 2 coalesced ranges, got %d: %v", len(got), got)
	}
	start, _ := got[0].Start()
	stop, _ := got[0].Stop()
	if !start.Equal(o(1)) || !stop.Equal(o(8)) {
		t.Fatalf("first coalesced range = [%v,%v], want [1,8]", start, stop)
	}
}

func TestOptimizeWalkUnboundedTailShortCircuits(t *testing.T) {
	r1, _ := snmprange.New(ptr(o(4)), nil)
	r2, _ := snmprange.New(ptr(o(100)), ptr(o(200)))
	got := snmprange.OptimizeWalk([]snmprange.Range{r1, r2})
	if len(got) != 1 {
		t.Fatalf("expected the open-ended range to absorb everything after it, got %v", got)
	}
	start, hasStart := got[0].Start()
	_, hasStop := got[0].Stop()
	if !hasStart || hasStop || !start.Equal(o(4)) {
		t.Fatalf("got %v, want [4, +inf)", got[0])
	}
}

func TestOptimizeWalkSingleUnboundedReturnsNil(t *testing.T) {
	got := snmprange.OptimizeWalk([]snmprange.Range{snmprange.Unbounded})
	if got != nil {
		t.Fatalf("expected nil (full walk), got %v", got)
	}
}

func TestOptimizeWalkIdempotent(t *testing.T) {
	r1, _ := snmprange.New(ptr(o(1)), ptr(o(5)))
	r2, _ := snmprange.New(ptr(o(3)), ptr(o(8)))
	first := snmprange.OptimizeWalk([]snmprange.Range{r1, r2})
	second := snmprange.OptimizeWalk(first)
	if len(first) != len(second) {
		t.Fatalf("not idempotent: %v vs %v", first, second)
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("not idempotent at %d: %v vs %v", i, first[i], second[i])
		}
	}
}
