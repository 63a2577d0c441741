package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rtmsg/internal/ir"
)

// DefaultTimeout bounds the wait for each step's events.
const DefaultTimeout = 2 * time.Second

// Scenario describes a message exchange to run against an in-memory
// middleware and check.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Namespace of the harness node. Defaults to "/".
	Namespace string `yaml:"namespace,omitempty"`

	// Schemas adds message and service definitions on top of the built-ins.
	Schemas Schemas `yaml:"schemas,omitempty"`

	// Subscriptions are created before any step runs, in order.
	Subscriptions []Subscription `yaml:"subscriptions,omitempty"`

	// Servers answer every request with a fixed response.
	Servers []Server `yaml:"servers,omitempty"`

	// Steps run sequentially. Each waits until all of its events arrived.
	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Timeout per step. Defaults to DefaultTimeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Schemas are extra definitions for a scenario.
type Schemas struct {
	// Messages maps a type name (pkg/Type) to its .msg text.
	Messages map[string]string `yaml:"messages,omitempty"`

	// Services maps a service type name to its .srv text.
	Services map[string]string `yaml:"services,omitempty"`

	// Dirs are schema roots. Relative paths are resolved against the
	// scenario file's directory by LoadScenario.
	Dirs []string `yaml:"dirs,omitempty"`

	// CUE are directories holding a CUE package with a top-level
	// messages struct. Resolved like Dirs.
	CUE []string `yaml:"cue,omitempty"`
}

// Subscription listens on a topic.
type Subscription struct {
	Topic string `yaml:"topic"`
	Type  string `yaml:"type"`
}

// Server answers a service.
type Server struct {
	Service  string    `yaml:"service"`
	Type     string    `yaml:"type"`
	Response yaml.Node `yaml:"response"`
}

// Step either publishes on a topic or calls a service.
type Step struct {
	Publish string    `yaml:"publish,omitempty"`
	Call    string    `yaml:"call,omitempty"`
	Type    string    `yaml:"type"`
	Values  yaml.Node `yaml:"values"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type is one of trace_contains, trace_order or trace_count.
	Type string `yaml:"type"`

	// Kind and Name select events (trace_contains, trace_count).
	// An empty Kind matches every kind.
	Kind string `yaml:"kind,omitempty"`
	Name string `yaml:"name,omitempty"`

	// Values is a subset the selected event must carry (trace_contains).
	Values yaml.Node `yaml:"values,omitempty"`

	// Count is the expected number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Events lists "kind name" pairs that must appear in order (trace_order).
	Events []string `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected. Relative schema dirs are resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	sc, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	resolve := func(dirs []string) {
		for i, dir := range dirs {
			if !filepath.IsAbs(dir) {
				dirs[i] = filepath.Join(base, dir)
			}
		}
	}
	resolve(sc.Schemas.Dirs)
	resolve(sc.Schemas.CUE)
	return sc, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

func validateScenario(sc *Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	if sc.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	for i, s := range sc.Subscriptions {
		if s.Topic == "" || s.Type == "" {
			return fmt.Errorf("subscriptions[%d]: topic and type are required", i)
		}
	}
	for i, s := range sc.Servers {
		if s.Service == "" || s.Type == "" {
			return fmt.Errorf("servers[%d]: service and type are required", i)
		}
		if _, err := nodeValues(&s.Response); err != nil {
			return fmt.Errorf("servers[%d]: response: %w", i, err)
		}
	}
	for i, s := range sc.Steps {
		if err := validateStep(s, i); err != nil {
			return err
		}
	}
	for i, a := range sc.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(s Step, index int) error {
	if (s.Publish == "") == (s.Call == "") {
		return fmt.Errorf("steps[%d]: exactly one of publish or call is required", index)
	}
	if s.Type == "" {
		return fmt.Errorf("steps[%d]: type is required", index)
	}
	if _, err := nodeValues(&s.Values); err != nil {
		return fmt.Errorf("steps[%d]: values: %w", index, err)
	}
	return nil
}

func validateAssertion(a Assertion, index int) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for trace_contains", index)
		}
		if _, err := nodeValues(&a.Values); err != nil {
			return fmt.Errorf("assertions[%d]: values: %w", index, err)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// nodeValues converts an optional YAML mapping. An absent node is empty.
func nodeValues(n *yaml.Node) (*ir.Values, error) {
	if n.Kind == 0 {
		return &ir.Values{}, nil
	}
	return ir.FromYAML(n)
}
