package harness

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/roach88/rtmsg/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %s\n", event.Seq, event.Kind, event.Name, event.Values)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the trace and returns
// the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func matches(e TraceEvent, kind, name string) bool {
	return (kind == "" || e.Kind == kind) && e.Name == name
}

// assertTraceContains checks for an event with the given kind and name
// whose values include the expected subset.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	want, err := nodeValues(&a.Values)
	if err != nil {
		return err
	}
	for _, event := range trace {
		if matches(event, a.Kind, a.Name) && subsetOf(want, event.Values) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s %s with values %s", kindOrAny(a.Kind), a.Name, want),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the listed events occur in order. Other
// events may appear in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	pos := 0
	for _, entry := range a.Events {
		kind, name, ok := strings.Cut(strings.TrimSpace(entry), " ")
		if !ok {
			return fmt.Errorf("event %q: want \"kind name\"", entry)
		}
		name = strings.TrimSpace(name)

		found := false
		for pos < len(trace) {
			e := trace[pos]
			pos++
			if matches(e, kind, name) {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual:   fmt.Sprintf("%s not found after position %d", entry, pos),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that exactly Count events match.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if matches(event, a.Kind, a.Name) {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s %s", a.Count, kindOrAny(a.Kind), a.Name),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

func kindOrAny(kind string) string {
	if kind == "" {
		return "any"
	}
	return kind
}

// subsetOf reports whether every field of want is present in got with the
// same value. Scalars compare by canonical JSON, so 7 matches uint32(7).
func subsetOf(want, got *ir.Values) bool {
	if want.Len() == 0 {
		return true
	}
	if got == nil {
		return false
	}
	for _, k := range want.Keys() {
		wv, _ := want.Get(k)
		gv, ok := got.Get(k)
		if !ok {
			return false
		}
		if wsub, ok := wv.(*ir.Values); ok {
			gsub, ok := asValues(gv)
			if !ok || !subsetOf(wsub, gsub) {
				return false
			}
			continue
		}
		if !sameScalar(wv, gv) {
			return false
		}
	}
	return true
}

// asValues exposes time and duration as {sec, nsec} for subset matching.
func asValues(v any) (*ir.Values, bool) {
	switch t := v.(type) {
	case *ir.Values:
		return t, true
	case ir.Time:
		return ir.NewValues(ir.V("sec", t.Sec), ir.V("nsec", t.Nsec)), true
	case ir.Duration:
		return ir.NewValues(ir.V("sec", t.Sec), ir.V("nsec", t.Nsec)), true
	}
	return nil, false
}

func sameScalar(a, b any) bool {
	ca, err := ir.MarshalCanonical(a)
	if err != nil {
		return false
	}
	cb, err := ir.MarshalCanonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}
