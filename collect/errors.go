package collect

import (
	"fmt"

	"github.com/higherorderfunctor/snmp-stream/internal/oid"
)

// ErrorKind classifies why a session could not complete some part of its
// work. Every kind but ValueWarning marks a hard failure of the exchange
// that produced it, except a CreateRequestPDUError recorded for one OID that
// could not be attached to a request PDU, which drops only that head;
// ValueWarning annotates a single var-bind inside an otherwise successful
// response.
type ErrorKind int

const (
	SessionError ErrorKind = iota
	CreateRequestPDUError
	SendError
	BadResponsePDUError
	TimeoutError
	AsyncProbeError
	TransportDisconnectError
	CreateResponsePDUError
	ValueWarning
)

func (k ErrorKind) String() string {
	switch k {
	case SessionError:
		return "SESSION_ERROR"
	case CreateRequestPDUError:
		return "CREATE_REQUEST_PDU_ERROR"
	case SendError:
		return "SEND_ERROR"
	case BadResponsePDUError:
		return "BAD_RESPONSE_PDU_ERROR"
	case TimeoutError:
		return "TIMEOUT_ERROR"
	case AsyncProbeError:
		return "ASYNC_PROBE_ERROR"
	case TransportDisconnectError:
		return "TRANSPORT_DISCONNECT_ERROR"
	case CreateResponsePDUError:
		return "CREATE_RESPONSE_PDU_ERROR"
	case ValueWarning:
		return "VALUE_WARNING"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a single fault recorded against a request, carrying whichever of
// the optional diagnostic fields its kind makes available.
type Error struct {
	Kind      ErrorKind
	Host      string
	SysErrno  *int
	SnmpErrno *int
	ErrStat   *int
	ErrIndex  *int
	OID       *oid.OID
	Message   string
}

func (e Error) Error() string {
	msg := e.Kind.String()
	if e.Host != "" {
		msg = fmt.Sprintf("%s: host=%s", msg, e.Host)
	}
	if e.OID != nil {
		msg = fmt.Sprintf("%s oid=%s", msg, e.OID)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	return msg
}

func newSessionError(host, message string) Error {
	return Error{Kind: SessionError, Host: host, Message: message}
}

func newTransportError(kind ErrorKind, host string, sysErrno, snmpErrno int, message string) Error {
	return Error{Kind: kind, Host: host, SysErrno: &sysErrno, SnmpErrno: &snmpErrno, Message: message}
}

func newValueWarning(host string, o oid.OID, message string) Error {
	oc := o
	return Error{Kind: ValueWarning, Host: host, OID: &oc, Message: message}
}
