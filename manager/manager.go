// Package manager implements the SessionManager: a single-threaded
// scheduler that admits requests from a FIFO queue, drives every active
// session's cooperative event loop one tick at a time, and harvests
// finished responses.
//
// Fairness is governed by the tightest max_async_sessions ceiling among the
// sessions currently active, folded against the head-of-queue request's own
// limit: admitting another request is only allowed while the resulting
// active count stays at or below that ceiling, so one conservative request
// can never be starved by a flood of looser ones, and a conservative
// request never rides in on top of a looser active set.
package manager

import (
	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"

	"github.com/higherorderfunctor/snmp-stream/collect"
	"github.com/higherorderfunctor/snmp-stream/transport"
)

// Option customizes a SessionManager at construction time.
type Option func(*SessionManager)

// WithDefaultConfig overrides the engine-wide config that every request's
// own Config is overlaid onto.
func WithDefaultConfig(cfg collect.Config) Option {
	return func(m *SessionManager) { m.defaultConfig = cfg }
}

// WithLogger attaches a structured logger. A nil logger (the default)
// falls back to logrus's standard logger.
func WithLogger(log *logrus.Entry) Option {
	return func(m *SessionManager) { m.log = log }
}

// SessionManager owns the admission queue and the set of active sessions.
// It is not safe for concurrent use: Run is meant to be pumped from a
// single goroutine, matching the cooperative event loop the rest of the
// engine assumes.
type SessionManager struct {
	tp            transport.Transport
	defaultConfig collect.Config
	log           *logrus.Entry

	pending *queue.Queue
	active  []*collect.Session

	harvested []collect.Response
}

// New constructs a SessionManager bound to tp.
func New(tp transport.Transport, opts ...Option) *SessionManager {
	m := &SessionManager{
		tp:            tp,
		defaultConfig: collect.DefaultConfig(),
		pending:       queue.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logrus.NewEntry(logrus.StandardLogger())
	}
	return m
}

// AddRequest resolves req's config against the manager's defaults and
// enqueues it for admission. The request's own Config fields (if set) take
// precedence over the manager's defaults.
func (m *SessionManager) AddRequest(req collect.Request) {
	req.Config = m.defaultConfig.Overlay(req.Config)
	m.pending.Add(req)
}

// PendingCount reports how many requests are waiting for admission.
func (m *SessionManager) PendingCount() int { return m.pending.Length() }

// ActiveCount reports how many sessions are currently running.
func (m *SessionManager) ActiveCount() int { return len(m.active) }

// Run executes one scheduling tick: admit as many queued requests as the
// current ceiling allows, drive the active sessions (see drive) until one
// closes or no session can advance, and move any session that finished this
// tick into the harvested list. It returns the responses harvested during
// this tick.
func (m *SessionManager) Run() []collect.Response {
	m.admit()
	m.drive()
	return m.harvest()
}

// admit pops requests off the pending queue while A + 1 <= min(M,
// head_of_queue.max_async_sessions), where A is the current active count and
// M is the tightest max_async_sessions among the already-active sessions
// (unbounded if none are active yet). Folding the head-of-queue request's
// own ceiling into the gate, rather than checking it only after admission,
// keeps active_count <= min(max_async_sessions of active sessions) true at
// every moment: a tightly-ceilinged request can never be admitted on top of
// a looser-ceilinged active set.
func (m *SessionManager) admit() {
	for m.pending.Length() > 0 {
		req := m.pending.Peek().(collect.Request)
		if len(m.active)+1 > m.ceiling(*req.Config.MaxAsyncSessions) {
			return
		}
		m.pending.Remove()

		sess, err := collect.NewSession(req, m.tp, m.log)
		if err != nil {
			m.log.WithError(err).WithField("host", req.Host).Error("failed to construct session")
			continue
		}
		m.active = append(m.active, sess)
	}
}

// ceiling is min(M, headLimit): the tightest max_async_sessions among the
// currently active sessions, folded against the head-of-queue request's own
// limit.
func (m *SessionManager) ceiling(headLimit int) int {
	c := headLimit
	for _, sess := range m.active {
		if limit := *sess.Request().Config.MaxAsyncSessions; limit < c {
			c = limit
		}
	}
	return c
}

// drive pumps every active session's Send/Read pair repeatedly, the way the
// underlying reactor loop does: with a transport whose Read genuinely blocks
// until something is ready, one pass either advances a session or blocks on
// I/O, so looping until a session closes (or nothing can be done without
// external input right now) guarantees at least one closure whenever the
// active set has any forward progress left to make in a tick.
func (m *SessionManager) drive() {
	for {
		changed := false
		for _, sess := range m.active {
			before := sess.Status()
			switch before {
			case collect.Idle:
				sess.Send()
			case collect.Wait:
				sess.Read()
			}
			if sess.Status() != before {
				changed = true
			}
		}
		if !changed {
			return
		}
		for _, sess := range m.active {
			if sess.IsDone() {
				return
			}
		}
	}
}

func (m *SessionManager) harvest() []collect.Response {
	var responses []collect.Response
	remaining := m.active[:0]
	for _, sess := range m.active {
		if sess.IsDone() {
			responses = append(responses, sess.GetResponse())
			continue
		}
		remaining = append(remaining, sess)
	}
	m.active = remaining
	return responses
}
