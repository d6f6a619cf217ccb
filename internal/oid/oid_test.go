package oid_test

import (
	"testing"

	"github.com/higherorderfunctor/snmp-stream/internal/oid"
)

func TestCompareTotalOrder(t *testing.T) {
	cases := []struct {
		name string
		a, b oid.OID
		want int
	}{
		{"equal", oid.New(1, 3, 6), oid.New(1, 3, 6), 0},
		{"prefix shorter is less", oid.New(1, 3), oid.New(1, 3, 6), -1},
		{"prefix longer is greater", oid.New(1, 3, 6), oid.New(1, 3), 1},
		{"diverge", oid.New(1, 3, 7), oid.New(1, 3, 6), 1},
		{"empty vs non-empty", oid.OID{}, oid.New(1), -1},
		{"empty vs empty", oid.OID{}, oid.OID{}, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.a.Compare(c.b); got != c.want {
				t.Fatalf("Compare(%v, %v) = %d, want %d", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestIsRootOfReflexiveAndTransitive(t *testing.T) {
	a := oid.New(1, 3, 6)
	b := oid.New(1, 3, 6, 1)
	c := oid.New(1, 3, 6, 1, 2)

	if !a.IsRootOf(a) {
		t.Fatal("IsRootOf must be reflexive")
	}
	if !a.IsRootOf(b) || !b.IsRootOf(c) {
		t.Fatal("expected root-of chain a->b->c")
	}
	if !a.IsRootOf(c) {
		t.Fatal("IsRootOf must be transitive")
	}
	if c.IsRootOf(a) {
		t.Fatal("longer OID cannot be root of shorter one")
	}
}

func TestZeroLengthOIDIsRootOfEverything(t *testing.T) {
	z := oid.OID{}
	if !z.IsRootOf(oid.New(1, 2, 3)) {
		t.Fatal("zero-length OID should be root of any OID")
	}
	if !z.IsRootOf(z) {
		t.Fatal("zero-length OID should be root of itself")
	}
}

func TestConcat(t *testing.T) {
	root := oid.New(1, 3, 6, 1, 2, 1, 1, 1)
	suffix := oid.New(0)
	got := root.Concat(suffix)
	want := oid.New(1, 3, 6, 1, 2, 1, 1, 1, 0)
	if !got.Equal(want) {
		t.Fatalf("Concat = %v, want %v", got, want)
	}
	if !root.Concat(oid.OID{}).Equal(root) {
		t.Fatal("concat with empty OID should be identity")
	}
}

func TestTail(t *testing.T) {
	full := oid.New(1, 3, 6, 1, 2, 1, 2, 2, 1, 2, 7)
	root := oid.New(1, 3, 6, 1, 2, 1, 2, 2, 1, 2)
	tail := full.Tail(root.Len())
	if len(tail) != 1 || tail[0] != 7 {
		t.Fatalf("Tail = %v, want [7]", tail)
	}
}

func TestString(t *testing.T) {
	if got, want := oid.New(1, 3, 6).String(), ".1.3.6"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if got, want := (oid.OID{}).String(), ""; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
