// Package transporttest provides a deterministic, in-memory transport.Transport
// double for exercising the collection engine's session state machine
// without a network.
package transporttest

import (
	"time"

	"github.com/higherorderfunctor/snmp-stream/internal/oid"
	"github.com/higherorderfunctor/snmp-stream/transport"
)

// Fake is a scripted transport.Transport. Tests enqueue the PDUs or
// callback ops each handle should deliver, then drive Session.Read to pop
// them one at a time.
type Fake struct {
	OpenErr error

	// handles indexed by the order Open was called in.
	handles []*fakeHandle
}

type fakeHandle struct {
	host      string
	closed    bool
	queue     []queued
	pending   transport.Callback
	sysErrno  int
	snmpErrno int
	message   string
}

type queued struct {
	op  transport.CallbackOp
	pdu *transport.PDU
}

// NewFake returns a ready-to-use Fake transport.
func NewFake() *Fake { return &Fake{} }

// Enqueue schedules op/pdu to be delivered the next time the session at
// handleIndex (0-based, in Open call order) calls Read after its next Send.
func (f *Fake) Enqueue(handleIndex int, op transport.CallbackOp, pdu *transport.PDU) {
	f.handles[handleIndex].queue = append(f.handles[handleIndex].queue, queued{op: op, pdu: pdu})
}

// SetError configures the sys/snmp error codes and message Error reports
// for handleIndex.
func (f *Fake) SetError(handleIndex int, sysErrno, snmpErrno int, message string) {
	h := f.handles[handleIndex]
	h.sysErrno, h.snmpErrno, h.message = sysErrno, snmpErrno, message
}

func (f *Fake) Open(host string, version transport.Version, community string, retries, timeoutSeconds int) (transport.Handle, error) {
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	h := &fakeHandle{host: host}
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *Fake) CreatePDU(kind transport.PDUKind) (*transport.PDU, error) {
	return &transport.PDU{Kind: kind}, nil
}

func (f *Fake) AddNullVarbind(pdu *transport.PDU, o oid.OID) error {
	pdu.Variables = append(pdu.Variables, transport.Varbind{Name: o})
	return nil
}

func (f *Fake) AsyncSend(handle transport.Handle, pdu *transport.PDU, cb transport.Callback) bool {
	h, ok := handle.(*fakeHandle)
	if !ok {
		return false
	}
	h.pending = cb
	return true
}

// Select reports ready as soon as a queued event exists for the handle; the
// fake never simulates an idle poll window.
func (f *Fake) Select(handle transport.Handle) (bool, time.Duration) {
	h, ok := handle.(*fakeHandle)
	if !ok {
		return false, 0
	}
	return len(h.queue) > 0, 0
}

func (f *Fake) Read(handle transport.Handle) {
	h, ok := handle.(*fakeHandle)
	if !ok || len(h.queue) == 0 || h.pending == nil {
		return
	}
	next := h.queue[0]
	h.queue = h.queue[1:]
	cb := h.pending
	h.pending = nil
	cb(next.op, next.pdu)
}

// Timeout is a no-op: the fake never reports ready=false with a queued event
// still pending, so there is nothing for a retry tick to drive.
func (f *Fake) Timeout(handle transport.Handle) {}

func (f *Fake) Close(handle transport.Handle) error {
	h, ok := handle.(*fakeHandle)
	if !ok {
		return nil
	}
	h.closed = true
	return nil
}

func (f *Fake) Error(handle transport.Handle) (int, int, string) {
	h, ok := handle.(*fakeHandle)
	if !ok {
		return 0, 0, ""
	}
	return h.sysErrno, h.snmpErrno, h.message
}
