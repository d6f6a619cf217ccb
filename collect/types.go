// Package collect implements the collection engine's data model and session
// state machine (§3-5): requests, responses, errors, collection heads, and
// the per-request session that drives them against a transport.Transport.
package collect

import (
	"fmt"

	"github.com/higherorderfunctor/snmp-stream/transport"
)

// Community bundles the read community string with the protocol version to
// speak when using it.
type Community struct {
	String  string
	Version transport.Version
}

// Config holds the four optional per-request tuning knobs. Every field is a
// pointer so an unset value can be told apart from an explicit zero, which is
// what makes Overlay's right-biased composition meaningful.
type Config struct {
	Retries                   *int
	TimeoutSeconds            *int
	MaxResponseVarBindsPerPDU *int
	MaxAsyncSessions          *int
}

// Overlay returns a new Config with every field of rhs that is set taking
// precedence over the corresponding field of c. Overlay is associative: the
// composition c.Overlay(a).Overlay(b) equals c.Overlay(a.Overlay(b)).
func (c Config) Overlay(rhs Config) Config {
	out := c
	if rhs.Retries != nil {
		out.Retries = rhs.Retries
	}
	if rhs.TimeoutSeconds != nil {
		out.TimeoutSeconds = rhs.TimeoutSeconds
	}
	if rhs.MaxResponseVarBindsPerPDU != nil {
		out.MaxResponseVarBindsPerPDU = rhs.MaxResponseVarBindsPerPDU
	}
	if rhs.MaxAsyncSessions != nil {
		out.MaxAsyncSessions = rhs.MaxAsyncSessions
	}
	return out
}

// Validate checks every field that is present against its invariant.
// Absent fields are always valid; DefaultConfig overlaid on top fills them.
func (c Config) Validate() error {
	if c.Retries != nil && *c.Retries < 0 {
		return fmt.Errorf("%w: retries must be >= 0, got %d", ErrInvalidConfig, *c.Retries)
	}
	if c.TimeoutSeconds != nil && *c.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: timeout_s must be >= 0, got %d", ErrInvalidConfig, *c.TimeoutSeconds)
	}
	if c.MaxResponseVarBindsPerPDU != nil && *c.MaxResponseVarBindsPerPDU < 1 {
		return fmt.Errorf("%w: max_response_varbinds_per_pdu must be >= 1, got %d", ErrInvalidConfig, *c.MaxResponseVarBindsPerPDU)
	}
	if c.MaxAsyncSessions != nil && *c.MaxAsyncSessions < 1 {
		return fmt.Errorf("%w: max_async_sessions must be >= 1, got %d", ErrInvalidConfig, *c.MaxAsyncSessions)
	}
	return nil
}

// IsComplete reports whether every field is present, which Session requires
// of the config it is constructed with.
func (c Config) IsComplete() bool {
	return c.Retries != nil && c.TimeoutSeconds != nil &&
		c.MaxResponseVarBindsPerPDU != nil && c.MaxAsyncSessions != nil
}

// ErrInvalidConfig is the sentinel wrapped by Config.Validate failures.
var ErrInvalidConfig = fmt.Errorf("invalid config")

func intPtr(v int) *int { return &v }

// DefaultConfig returns the engine's built-in defaults, fully populated so it
// can sit at the left of any overlay chain.
func DefaultConfig() Config {
	return Config{
		Retries:                   intPtr(3),
		TimeoutSeconds:            intPtr(3),
		MaxResponseVarBindsPerPDU: intPtr(10),
		MaxAsyncSessions:          intPtr(10),
	}
}
