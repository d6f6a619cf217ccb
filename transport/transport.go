// Package transport defines the SNMP transport primitive the collection
// engine treats as an external collaborator (§6 of the design spec):
// open/send/recv/close plus socket-selection and retry/timeout timers. The
// collection engine (package collect) depends only on this interface; this
// package also ships a concrete implementation backed by
// github.com/gosnmp/gosnmp.
package transport

import (
	"fmt"
	"time"

	"github.com/higherorderfunctor/snmp-stream/internal/oid"
)

// Version is the SNMP protocol version, matching wire versions 0 and 1.
type Version int

const (
	V1  Version = 0
	V2C Version = 1
)

func (v Version) String() string {
	switch v {
	case V1:
		return "V1"
	case V2C:
		return "V2C"
	default:
		return fmt.Sprintf("Version(%d)", int(v))
	}
}

// PDUKind is the kind of PDU being built or received.
type PDUKind int

const (
	Get PDUKind = iota
	GetNext
	GetBulk
	Response
)

func (k PDUKind) String() string {
	switch k {
	case Get:
		return "GET"
	case GetNext:
		return "GETNEXT"
	case GetBulk:
		return "GETBULK"
	case Response:
		return "RESPONSE"
	default:
		return fmt.Sprintf("PDUKind(%d)", int(k))
	}
}

// CallbackOp is the reason a Transport invoked a session's callback.
type CallbackOp int

const (
	OpReceived CallbackOp = iota
	OpTimedOut
	OpSendFailed
	OpDisconnect
	OpResend
)

// Value-type sentinels an agent uses to signal MIB-view boundaries. These
// never enter the result buffer for a GET.
const (
	NoSuchObject   byte = 128
	NoSuchInstance byte = 129
	EndOfMibView   byte = 130
)

// ErrNoError is the PDU error-status value meaning "no error".
const ErrNoError = 0

// Varbind is a (name, type, value) triple carried inside a PDU.
type Varbind struct {
	Name  oid.OID
	Type  byte
	Value []byte
}

// PDU is a request or response protocol data unit.
type PDU struct {
	Kind           PDUKind
	NonRepeaters   int
	MaxRepetitions int
	Variables      []Varbind
	ErrStat        int
	ErrIndex       int
}

// Callback is invoked by a Transport to deliver an asynchronous event to the
// session that issued the request.
type Callback func(op CallbackOp, pdu *PDU)

// Handle is an opaque reference to an open transport session. Concrete
// Transport implementations define its underlying type.
type Handle any

// Transport is the contract the collection engine requires from its
// underlying SNMP stack. Implementations must make Select the only
// suspension point exposed to callers, so the engine's single-threaded
// cooperative event loop can pump many transports without additional
// synchronization.
type Transport interface {
	// Open establishes a session with host using the given community and
	// protocol version, with retries attempts and a per-attempt timeout.
	Open(host string, version Version, community string, retries, timeoutSeconds int) (Handle, error)

	// CreatePDU allocates an empty request PDU of the given kind.
	CreatePDU(kind PDUKind) (*PDU, error)

	// AddNullVarbind attaches a null-valued variable binding naming o to pdu.
	AddNullVarbind(pdu *PDU, o oid.OID) error

	// AsyncSend dispatches pdu asynchronously over handle. cb is invoked
	// exactly once when the exchange completes, times out, or fails. It
	// returns false if the PDU could not be dispatched at all.
	AsyncSend(handle Handle, pdu *PDU, cb Callback) bool

	// Select reports whether handle has a response ready to be drained, and
	// if not, how long the caller should wait before calling Timeout.
	Select(handle Handle) (ready bool, timeout time.Duration)

	// Read drains a ready handle, synchronously re-entering the pending
	// callback registered by AsyncSend.
	Read(handle Handle)

	// Timeout signals that no data arrived within the selected window,
	// driving the transport's retry/timeout policy.
	Timeout(handle Handle)

	// Close releases the handle's resources.
	Close(handle Handle) error

	// Error reports the most recent system/SNMP error codes and message
	// associated with handle.
	Error(handle Handle) (sysErrno, snmpErrno int, message string)
}
