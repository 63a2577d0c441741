package harness

import (
	"encoding/hex"

	"github.com/roach88/rtmsg/internal/ir"
)

// Trace event kinds.
const (
	KindPublish  = "publish"  // harness published on a topic
	KindReceive  = "receive"  // a scenario subscription took a message
	KindCall     = "call"     // harness sent a service request
	KindServe    = "serve"    // a scenario server handled a request
	KindResponse = "response" // the calling client took the response
)

// TraceEvent is one observed message.
type TraceEvent struct {
	Seq    int64      `json:"seq"`
	Kind   string     `json:"kind"`
	Name   string     `json:"name"` // resolved topic or service name
	Type   string     `json:"type"`
	Wire   []byte     `json:"wire,omitempty"` // publish and call only
	Values *ir.Values `json:"values,omitempty"`

	// rank orders events of one step that may arrive in any order.
	rank int
}

// Canonical renders the event as one line of canonical JSON.
func (e TraceEvent) Canonical() ([]byte, error) {
	v := ir.NewValues(
		ir.V("seq", e.Seq),
		ir.V("kind", e.Kind),
		ir.V("name", e.Name),
		ir.V("type", e.Type),
	)
	if e.Wire != nil {
		v.Set("wire", hex.EncodeToString(e.Wire))
	}
	if e.Values != nil {
		v.Set("values", e.Values)
	}
	return ir.MarshalCanonical(v)
}

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace holds every event in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
