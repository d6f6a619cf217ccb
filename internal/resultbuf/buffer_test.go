package resultbuf_test

import (
	"bytes"
	"testing"

	"github.com/higherorderfunctor/snmp-stream/internal/oid"
	"github.com/higherorderfunctor/snmp-stream/internal/resultbuf"
)

func TestHeaderBytes(t *testing.T) {
	w := resultbuf.NewWriter("req-1", []oid.OID{oid.New(1, 3, 6, 1, 2, 1, 1, 1)})
	buf := w.Bytes()
	if len(buf) < 16 {
		t.Fatalf("buffer too short for header: %d", len(buf))
	}
	if buf[0] != 0 {
		t.Fatalf("expected little-endian marker 0, got %d", buf[0])
	}
	if buf[1] != 8 {
		t.Fatalf("expected word size 8, got %d", buf[1])
	}
	if buf[2] != 8 {
		t.Fatalf("expected octet size 8, got %d", buf[2])
	}
	for i := 3; i < 16; i++ {
		if buf[i] != 0 {
			t.Fatalf("expected reserved byte %d to be zero", i)
		}
	}
}

func TestRoundTripSingleRecord(t *testing.T) {
	root := oid.New(1, 3, 6, 1, 2, 1, 2, 2, 1, 2)
	w := resultbuf.NewWriter("abc", []oid.OID{root})
	w.AppendRecord(1690000000, 0, 4, []oid.SubID{1}, []byte("lo"))

	decoded, err := resultbuf.Parse(w.Bytes())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if decoded.ReqID != "abc" {
		t.Fatalf("ReqID = %q, want abc", decoded.ReqID)
	}
	if len(decoded.Roots) != 1 || !decoded.Roots[0].Equal(root) {
		t.Fatalf("Roots = %v, want [%v]", decoded.Roots, root)
	}
	if len(decoded.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(decoded.Records))
	}
	rec := decoded.Records[0]
	if rec.Timestamp != 1690000000 || rec.RootIndex != 0 || rec.ValueType != 4 {
		t.Fatalf("unexpected record metadata: %+v", rec)
	}
	if len(rec.IndexTail) != 1 || rec.IndexTail[0] != 1 {
		t.Fatalf("unexpected index tail: %v", rec.IndexTail)
	}
	if !bytes.Equal(rec.Value, []byte("lo")) {
		t.Fatalf("unexpected value: %q", rec.Value)
	}
}

func TestRoundTripMultipleRecordsAndEmptyReqID(t *testing.T) {
	root0 := oid.New(1, 3, 6, 1, 2, 1, 1, 1)
	root1 := oid.New(1, 3, 6, 1, 2, 1, 2, 2, 1, 2)
	w := resultbuf.NewWriter("", []oid.OID{root0, root1})

	w.AppendRecord(100, 0, 4, nil, []byte("Linux"))
	w.AppendRecord(101, 1, 4, []oid.SubID{1}, []byte("lo"))
	w.AppendRecord(102, 1, 4, []oid.SubID{2}, []byte("eth0"))

	decoded, err := resultbuf.Parse(w.Bytes())
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if decoded.ReqID != "" {
		t.Fatalf("ReqID = %q, want empty", decoded.ReqID)
	}
	if len(decoded.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(decoded.Records))
	}
	want := []string{"Linux", "lo", "eth0"}
	for i, rec := range decoded.Records {
		if string(rec.Value) != want[i] {
			t.Fatalf("record %d value = %q, want %q", i, rec.Value, want[i])
		}
	}
	if decoded.Records[0].RootIndex != 0 || decoded.Records[1].RootIndex != 1 {
		t.Fatalf("unexpected root indices: %+v", decoded.Records)
	}
}

func TestParseTruncatedBufferErrors(t *testing.T) {
	if _, err := resultbuf.Parse([]byte{0, 8, 8}); err == nil {
		t.Fatal("expected error for truncated header")
	}
}
