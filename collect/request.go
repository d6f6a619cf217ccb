package collect

import (
	"fmt"

	"github.com/higherorderfunctor/snmp-stream/internal/oid"
	"github.com/higherorderfunctor/snmp-stream/internal/snmprange"
)

// Type distinguishes a single-probe GET request from a subtree WALK.
type Type int

const (
	GET Type = iota
	WALK
)

func (t Type) String() string {
	if t == WALK {
		return "WALK"
	}
	return "GET"
}

// Request is a single collection request: one or more root OIDs, each with
// an optional set of ranges restricting what under that root is collected.
type Request struct {
	Type      Type
	Host      string
	Community Community
	RootOIDs  []oid.OID
	Ranges    []snmprange.Range
	ReqID     string
	Config    Config
}

// ErrInvalidRequest is the sentinel wrapped by every Request validation
// failure.
var ErrInvalidRequest = fmt.Errorf("invalid request")

// New validates and canonicalises a request. ranges may be nil, meaning
// "the full subtree of every root" for a WALK, or "each root itself" for a
// GET. Canonicalisation is per-type: OptimizeGet for GET, OptimizeWalk for
// WALK.
func New(typ Type, host string, community Community, rootOIDs []oid.OID, ranges []snmprange.Range, reqID string, cfg Config) (Request, error) {
	if host == "" {
		return Request{}, fmt.Errorf("%w: host must not be empty", ErrInvalidRequest)
	}
	if len(rootOIDs) == 0 {
		return Request{}, fmt.Errorf("%w: at least one root OID is required", ErrInvalidRequest)
	}
	if i, j, ok := ambiguousRoot(rootOIDs); ok {
		return Request{}, fmt.Errorf("%w: root %s is an ancestor of root %s", ErrInvalidRequest, rootOIDs[i], rootOIDs[j])
	}
	if err := cfg.Validate(); err != nil {
		return Request{}, err
	}

	var canon []snmprange.Range
	switch typ {
	case GET:
		var err error
		canon, err = snmprange.OptimizeGet(ranges)
		if err != nil {
			return Request{}, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
		}
	case WALK:
		canon = snmprange.OptimizeWalk(ranges)
	default:
		return Request{}, fmt.Errorf("%w: unknown request type %d", ErrInvalidRequest, int(typ))
	}

	roots := make([]oid.OID, len(rootOIDs))
	copy(roots, rootOIDs)

	return Request{
		Type:      typ,
		Host:      host,
		Community: community,
		RootOIDs:  roots,
		Ranges:    canon,
		ReqID:     reqID,
		Config:    cfg,
	}, nil
}

// String renders a one-line repr useful for logging, e.g.
// `Request(GET host=10.0.0.1 req_id=r1 roots=1)`.
func (r Request) String() string {
	return fmt.Sprintf("Request(%s host=%s req_id=%s roots=%d)", r.Type, r.Host, r.ReqID, len(r.RootOIDs))
}

// ambiguousRoot reports the first pair of root OIDs where one is a (possibly
// equal) prefix of the other, which would make response var-binds impossible
// to attribute to a single root unambiguously.
func ambiguousRoot(roots []oid.OID) (i, j int, found bool) {
	for a := 0; a < len(roots); a++ {
		for b := a + 1; b < len(roots); b++ {
			if roots[a].IsRootOf(roots[b]) || roots[b].IsRootOf(roots[a]) {
				return a, b, true
			}
		}
	}
	return 0, 0, false
}
