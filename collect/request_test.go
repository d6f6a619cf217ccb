package collect_test

import (
	"testing"

	"github.com/higherorderfunctor/snmp-stream/collect"
	"github.com/higherorderfunctor/snmp-stream/internal/oid"
	"github.com/higherorderfunctor/snmp-stream/internal/snmprange"
)

func o(vals ...oid.SubID) oid.OID { return oid.New(vals...) }

func TestNewRequestRejectsEmptyRoots(t *testing.T) {
	_, err := collect.New(collect.GET, "localhost", collect.Community{}, nil, nil, "", collect.Config{})
	if err == nil {
		t.Fatal("expected error for empty root OIDs")
	}
}

func TestNewRequestRejectsAmbiguousRoots(t *testing.T) {
	roots := []oid.OID{o(1, 3, 6, 1, 2, 1), o(1, 3, 6, 1, 2, 1, 1)}
	_, err := collect.New(collect.WALK, "localhost", collect.Community{}, roots, nil, "", collect.Config{})
	if err == nil {
		t.Fatal("expected error for ancestor/descendant roots")
	}
}

func TestNewRequestRejectsNonPointRangeForGet(t *testing.T) {
	roots := []oid.OID{o(1, 3, 6, 1, 2, 1, 1, 1)}
	rng, _ := snmprange.New(&roots[0], nil)
	_, err := collect.New(collect.GET, "localhost", collect.Community{}, roots, []snmprange.Range{rng}, "", collect.Config{})
	if err == nil {
		t.Fatal("expected error for non-point GET range")
	}
}

func TestNewRequestCanonicalizesWalkRanges(t *testing.T) {
	root := o(1, 3, 6, 1, 2, 1, 2, 2, 1)
	s1, e1 := o(1), o(5)
	s2, e2 := o(3), o(8)
	r1, _ := snmprange.New(&s1, &e1)
	r2, _ := snmprange.New(&s2, &e2)
	req, err := collect.New(collect.WALK, "localhost", collect.Community{}, []oid.OID{root}, []snmprange.Range{r1, r2}, "req1", collect.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Ranges) != 1 {
		t.Fatalf("expected ranges to coalesce to 1, got %d", len(req.Ranges))
	}
	start, _ := req.Ranges[0].Start()
	stop, _ := req.Ranges[0].Stop()
	if !start.Equal(o(1)) || !stop.Equal(o(8)) {
		t.Fatalf("got [%v,%v], want [1,8]", start, stop)
	}
}

func TestNewRequestRejectsInvalidConfig(t *testing.T) {
	bad := -1
	_, err := collect.New(collect.GET, "localhost", collect.Community{}, []oid.OID{o(1)}, nil, "", collect.Config{Retries: &bad})
	if err == nil {
		t.Fatal("expected error for negative retries")
	}
}
