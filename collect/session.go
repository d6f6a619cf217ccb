package collect

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/higherorderfunctor/snmp-stream/internal/oid"
	"github.com/higherorderfunctor/snmp-stream/internal/resultbuf"
	"github.com/higherorderfunctor/snmp-stream/internal/snmprange"
	"github.com/higherorderfunctor/snmp-stream/transport"
)

// Status is a session's position in its lifecycle.
type Status int

const (
	// Idle means the session has no outstanding PDU and Send may be called.
	Idle Status = iota
	// Wait means a PDU is outstanding and Read may be called.
	Wait
	// Closed means the session has finished, successfully or not; its
	// Response is ready to harvest.
	Closed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Wait:
		return "WAIT"
	case Closed:
		return "CLOSED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Session drives one Request to completion against a transport.Transport: it
// owns the collection heads, the shared result buffer, and the bookkeeping
// that turns a stream of PDU callbacks into accept/reject decisions per
// var-bind.
type Session struct {
	request Request
	tp      transport.Transport
	log     *logrus.Entry

	status  Status
	pduKind transport.PDUKind
	handle  transport.Handle

	buf *resultbuf.Writer

	pending []*head // heads awaiting activation, FIFO order
	active  []*head // heads that were part of the PDU currently in flight

	errFlag bool
	errors  []Error
}

// NewSession constructs and opens a session for req. req.Config must be
// fully resolved (every field present); SessionManager is responsible for
// overlaying request-level config onto the engine defaults before
// constructing sessions.
func NewSession(req Request, tp transport.Transport, log *logrus.Entry) (*Session, error) {
	if !req.Config.IsComplete() {
		return nil, fmt.Errorf("%w: session requires a fully resolved config", ErrInvalidRequest)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	s := &Session{
		request: req,
		tp:      tp,
		log:     log.WithFields(logrus.Fields{"host": req.Host, "req_id": req.ReqID}),
		buf:     resultbuf.NewWriter(req.ReqID, req.RootOIDs),
	}

	switch req.Type {
	case GET:
		s.pduKind = transport.Get
	case WALK:
		if req.Community.Version == transport.V1 {
			s.pduKind = transport.GetNext
		} else {
			s.pduKind = transport.GetBulk
		}
	}

	handle, err := tp.Open(req.Host, req.Community.Version, req.Community.String, *req.Config.Retries, *req.Config.TimeoutSeconds)
	if err != nil {
		s.errFlag = true
		s.errors = append(s.errors, newSessionError(req.Host, err.Error()))
		s.status = Closed
		return s, nil
	}
	s.handle = handle
	s.status = Idle

	s.pending = buildHeads(req, s.buf)
	if len(s.pending) == 0 {
		s.status = Closed
	}
	return s, nil
}

func buildHeads(req Request, buf *resultbuf.Writer) []*head {
	ranges := req.Ranges
	if len(ranges) == 0 {
		ranges = []snmprange.Range{snmprange.Unbounded}
	}
	var heads []*head
	for i, root := range req.RootOIDs {
		for _, rng := range ranges {
			heads = append(heads, newHead(i, root, rng, buf))
		}
	}
	return heads
}

// Status reports the session's current lifecycle position.
func (s *Session) Status() Status { return s.status }

// Request returns the (fully resolved) request this session is driving.
func (s *Session) Request() Request { return s.request }

// Send batches a number of pending heads into one PDU and dispatches it
// asynchronously. It is only valid to call while Idle.
//
// The slot count is max_response_var_binds_per_pdu for GET/GETNEXT, but
// floor(sqrt(max_response_var_binds_per_pdu)) for GETBULK: each slot then
// gets floor(max_response_var_binds_per_pdu / slots) repetitions via
// max_repetitions, so the product stays bounded by the same budget that
// caps a flat GET batch.
func (s *Session) Send() {
	if s.status != Idle {
		return
	}
	if len(s.pending) == 0 {
		s.finishIfDrained()
		return
	}

	maxVarBinds := *s.request.Config.MaxResponseVarBindsPerPDU
	slots := maxVarBinds
	if s.pduKind == transport.GetBulk {
		slots = int(math.Sqrt(float64(maxVarBinds)))
		if slots < 1 {
			slots = 1
		}
	}
	if slots > len(s.pending) {
		slots = len(s.pending)
	}

	pdu, err := s.tp.CreatePDU(s.pduKind)
	if err != nil {
		s.fail(CreateRequestPDUError, err.Error())
		return
	}

	batch := s.pending[:slots]
	s.pending = s.pending[slots:]

	filled := make([]*head, 0, slots)
	for _, h := range batch {
		next := h.activate()
		if err := s.tp.AddNullVarbind(pdu, next); err != nil {
			// this head cannot be attached to any PDU; drop it rather than
			// failing the whole session over one bad root.
			h.deactivate()
			s.errFlag = true
			s.errors = append(s.errors, Error{Kind: CreateRequestPDUError, Host: s.request.Host, Message: err.Error()})
			continue
		}
		filled = append(filled, h)
	}
	if len(filled) == 0 {
		s.finishIfDrained()
		return
	}
	if s.pduKind == transport.GetBulk {
		pdu.NonRepeaters = 0
		pdu.MaxRepetitions = maxVarBinds / len(filled)
	}
	s.active = filled

	if ok := s.tp.AsyncSend(s.handle, pdu, s.onPDU); !ok {
		s.fail(SendError, "transport rejected dispatch")
		return
	}
	s.status = Wait
}

// Read pumps the transport's single suspension point: if a response is
// ready it is drained synchronously into onPDU, otherwise the transport's
// retry/timeout policy is ticked. Only valid while Wait.
func (s *Session) Read() {
	if s.status != Wait {
		return
	}
	if ready, _ := s.tp.Select(s.handle); ready {
		s.tp.Read(s.handle)
		return
	}
	s.tp.Timeout(s.handle)
}

// IsDone reports whether the session has reached Closed.
func (s *Session) IsDone() bool { return s.status == Closed }

// GetResponse returns the harvested response. Only meaningful once IsDone
// reports true.
func (s *Session) GetResponse() Response {
	return Response{
		Kind:    classifyResponse(s.errors, s.buf.RecordCount() > 0),
		Request: s.request,
		Results: s.buf.Bytes(),
		Errors:  s.errors,
	}
}

func (s *Session) fail(kind ErrorKind, message string) {
	s.errFlag = true
	s.errors = append(s.errors, Error{Kind: kind, Host: s.request.Host, Message: message})
	s.closeHandle()
	s.status = Closed
}

func (s *Session) closeHandle() {
	if s.handle != nil {
		_ = s.tp.Close(s.handle)
	}
}

// onPDU is the callback handed to transport.AsyncSend. It is invoked exactly
// once per dispatched PDU, re-entering the session synchronously from
// within Read.
func (s *Session) onPDU(op transport.CallbackOp, pdu *transport.PDU) {
	switch op {
	case transport.OpReceived:
		s.handleResponse(pdu)
	case transport.OpTimedOut:
		s.requeueActive()
		s.fail(TimeoutError, "no response within retry budget")
	case transport.OpSendFailed:
		sysErrno, snmpErrno, msg := s.tp.Error(s.handle)
		s.requeueActive()
		s.errFlag = true
		s.errors = append(s.errors, newTransportError(SendError, s.request.Host, sysErrno, snmpErrno, msg))
		s.closeHandle()
		s.status = Closed
	case transport.OpDisconnect:
		sysErrno, snmpErrno, msg := s.tp.Error(s.handle)
		s.requeueActive()
		s.errFlag = true
		s.errors = append(s.errors, newTransportError(TransportDisconnectError, s.request.Host, sysErrno, snmpErrno, msg))
		s.status = Closed
	case transport.OpResend:
		// transport is retrying the in-flight PDU on our behalf; nothing to do.
	}
}

func (s *Session) requeueActive() {
	s.pending = append(s.active, s.pending...)
	s.active = nil
}

func (s *Session) handleResponse(pdu *transport.PDU) {
	if len(s.active) == 0 {
		return
	}
	if pdu.ErrStat != transport.ErrNoError {
		// the agent rejected the whole PDU: fatal, per §4.5 on_pdu/Received.
		// Attach the one var-bind it blamed, if errindex names one we can
		// still see, and close the session.
		es, ei := pdu.ErrStat, pdu.ErrIndex
		e := Error{Kind: BadResponsePDUError, Host: s.request.Host, ErrStat: &es, ErrIndex: &ei}
		if ei >= 1 && ei <= len(pdu.Variables) {
			o := pdu.Variables[ei-1].Name
			e.OID = &o
		}
		s.errFlag = true
		s.errors = append(s.errors, e)
		s.closeHandle()
		s.status = Closed
		return
	}

	// Apply every var-bind this round, locating its owning head by scanning
	// the active list for the first one whose effective range covers it
	// (not by position), then reconcile each head's fate: a WALK head that
	// accepted nothing has nowhere left to go and is dropped; one that made
	// progress goes back to pending to continue from where it left off.
	// GET heads never record progress, so they are always dropped after
	// their one round, succeed or not. This tolerates a ragged response
	// (an agent that hits end-of-MIB early need not return a count that
	// divides evenly across the active heads).
	for _, vb := range pdu.Variables {
		s.processVarbind(s.findHead(vb.Name), vb)
	}

	stillPending := make([]*head, 0, len(s.active))
	for _, h := range s.active {
		if h.progressed() {
			h.deactivate()
			stillPending = append(stillPending, h)
		}
	}
	s.active = nil
	s.pending = append(s.pending, stillPending...)
	s.status = Idle
	s.finishIfDrained()
}

// findHead returns the first active head whose effective range covers resp,
// or nil if none does.
func (s *Session) findHead(resp oid.OID) *head {
	for _, h := range s.active {
		if h.accepts(resp) {
			return h
		}
	}
	return nil
}

// processVarbind applies one var-bind to its matching head (h is nil if
// findHead located none).
func (s *Session) processVarbind(h *head, vb transport.Varbind) {
	if s.request.Type == GET {
		if h == nil {
			s.errFlag = true
			s.errors = append(s.errors, newValueWarning(s.request.Host, vb.Name, "root OID not found"))
			return
		}
		requested, _ := h.requestedOID()
		if !vb.Name.Equal(requested) {
			s.errFlag = true
			s.errors = append(s.errors, newValueWarning(s.request.Host, vb.Name, "request OID does not match response OID"))
			return
		}
		switch vb.Type {
		case transport.NoSuchObject, transport.NoSuchInstance, transport.EndOfMibView:
			s.errFlag = true
			s.errors = append(s.errors, newValueWarning(s.request.Host, requested, sentinelName(vb.Type)))
			return
		}
		h.appendRecord(s.now(), vb.Type, vb.Name, vb.Value)
		return
	}

	// WALK: no head found is a silent discard (an overrun from a sibling
	// root's bulk response that no head's range covers). Otherwise
	// GETNEXT/GETBULK must make strictly forward progress past the last
	// OID this head accepted (or, before anything has been accepted this
	// round, past the OID it requested); anything else is discarded too.
	if h == nil {
		return
	}
	baseline := h.baseline()
	if !vb.Name.Greater(baseline) {
		return
	}
	h.acceptWalk(s.now(), vb.Type, vb.Name, vb.Value)
}

func sentinelName(valueType byte) string {
	switch valueType {
	case transport.NoSuchObject:
		return "NO_SUCH_OBJECT"
	case transport.NoSuchInstance:
		return "NO_SUCH_INSTANCE"
	case transport.EndOfMibView:
		return "END_OF_MIB_VIEW"
	default:
		return fmt.Sprintf("sentinel(%d)", valueType)
	}
}

func (s *Session) finishIfDrained() {
	if len(s.pending) == 0 && len(s.active) == 0 {
		s.closeHandle()
		s.status = Closed
	}
}

// now stamps accepted records. Exposed as a method (rather than calling
// time.Now directly in processVarbind) so tests can point it at a
// deterministic clock if one is ever needed; it is not currently injected.
func (s *Session) now() int64 {
	return nowUnix()
}
