package collect

import (
	"github.com/higherorderfunctor/snmp-stream/internal/oid"
	"github.com/higherorderfunctor/snmp-stream/internal/resultbuf"
	"github.com/higherorderfunctor/snmp-stream/internal/snmprange"
)

// head tracks one (root OID, range) pair's progress through a session: which
// OID to probe next, the last response accepted, and the effective interval
// that bounds what belongs to this head. Two bounds are always concrete OIDs
// (never absent): an absent user bound collapses to the root itself when
// concatenated, and the is-root-of fallback in accepts then makes the walk
// unbounded in that direction.
type head struct {
	rootIndex int
	root      oid.OID
	start     oid.OID
	stop      oid.OID

	reqOID      *oid.OID
	lastRespOID *oid.OID

	buf *resultbuf.Writer
}

func newHead(rootIndex int, root oid.OID, rng snmprange.Range, buf *resultbuf.Writer) *head {
	start, stop := root, root
	if s, ok := rng.Start(); ok {
		start = root.Concat(s)
	}
	if s, ok := rng.Stop(); ok {
		stop = root.Concat(s)
	}
	return &head{rootIndex: rootIndex, root: root, start: start, stop: stop, buf: buf}
}

// activate picks the next OID to probe: the root itself if nothing has been
// accepted yet, otherwise the last accepted response OID (GETNEXT/GETBULK
// semantics walk forward from there). It clears last_resp_oid, since that
// field means "accepted at least once this round" and a new round is
// starting.
func (h *head) activate() oid.OID {
	next := h.root
	if h.lastRespOID != nil {
		next = *h.lastRespOID
	}
	h.lastRespOID = nil
	h.reqOID = &next
	return next
}

// deactivate marks the head as having no outstanding request, without
// touching last_resp_oid. Called during round-end reconciliation once a
// head is known to have progressed, so it can be reactivated next round.
func (h *head) deactivate() { h.reqOID = nil }

func (h *head) requestedOID() (oid.OID, bool) {
	if h.reqOID == nil {
		return oid.OID{}, false
	}
	return *h.reqOID, true
}

// progressed reports whether a WALK var-bind was accepted since the last
// activate call. GET never sets last_resp_oid, so a GET head is never
// "progressed" regardless of whether its one response was accepted.
func (h *head) progressed() bool { return h.lastRespOID != nil }

// accepts reports whether respOID belongs to this head's effective range:
// inside [start, stop], or anywhere under stop's subtree, which is how an
// absent user stop bound (collapsed to the root) covers the whole subtree.
func (h *head) accepts(respOID oid.OID) bool {
	if respOID.GreaterOrEqual(h.start) && respOID.LessOrEqual(h.stop) {
		return true
	}
	return h.stop.IsRootOf(respOID)
}

// baseline is the OID a WALK var-bind must exceed to count as forward
// progress: the last response accepted this round, or (before anything has
// been accepted) the OID just requested.
func (h *head) baseline() oid.OID {
	if h.lastRespOID != nil {
		return *h.lastRespOID
	}
	if h.reqOID != nil {
		return *h.reqOID
	}
	return h.root
}

// appendRecord writes one accepted var-bind to the shared result buffer. It
// does not touch the progress cursor: GET calls this directly, WALK goes
// through acceptWalk below so last_resp_oid only ever reflects WALK
// progress.
func (h *head) appendRecord(timestamp int64, valueType byte, respOID oid.OID, value []byte) {
	tail := respOID.Tail(h.root.Len())
	h.buf.AppendRecord(timestamp, uint64(h.rootIndex), valueType, tail, value)
}

// acceptWalk appends the var-bind and advances the progress cursor so a
// later repetition in the same round, or a later round, keeps moving
// forward rather than re-requesting the same OID.
func (h *head) acceptWalk(timestamp int64, valueType byte, respOID oid.OID, value []byte) {
	h.appendRecord(timestamp, valueType, respOID, value)
	oc := respOID
	h.lastRespOID = &oc
}
