package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rtmsg/internal/ir"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Kind: KindPublish, Name: "/a", Values: ir.NewValues(ir.V("n", int32(1)))},
		{Seq: 2, Kind: KindReceive, Name: "/a", Values: ir.NewValues(ir.V("n", int32(1)))},
		{Seq: 3, Kind: KindCall, Name: "/s", Values: ir.NewValues(ir.V("stamp", ir.Time{Sec: 4, Nsec: 5}))},
		{Seq: 4, Kind: KindResponse, Name: "/s", Values: ir.NewValues(ir.V("ok", true))},
	}
}

func valuesNode(t *testing.T, src string) yaml.Node {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	return *doc.Content[0]
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	ok := Assertion{Type: AssertTraceContains, Kind: KindReceive, Name: "/a", Values: valuesNode(t, "{n: 1}")}
	assert.NoError(t, assertTraceContains(trace, ok))

	stamp := Assertion{Type: AssertTraceContains, Name: "/s", Values: valuesNode(t, "{stamp: {sec: 4}}")}
	assert.NoError(t, assertTraceContains(trace, stamp))

	anyValues := Assertion{Type: AssertTraceContains, Name: "/s"}
	assert.NoError(t, assertTraceContains(trace, anyValues))

	wrong := Assertion{Type: AssertTraceContains, Kind: KindReceive, Name: "/a", Values: valuesNode(t, "{n: 2}")}
	err := assertTraceContains(trace, wrong)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceContains, ae.Type)
	assert.Contains(t, err.Error(), "Full trace:")
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Events: []string{"publish /a", "response /s"}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Events: []string{"receive /a", "call /s"}}))

	err := assertTraceOrder(trace, Assertion{Events: []string{"call /s", "publish /a"}})
	assert.Error(t, err)

	err = assertTraceOrder(trace, Assertion{Events: []string{"publish"}})
	assert.ErrorContains(t, err, "want \"kind name\"")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Name: "/a", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Kind: KindPublish, Name: "/a", Count: 1}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Name: "/none", Count: 0}))
	assert.Error(t, assertTraceCount(trace, Assertion{Name: "/s", Count: 3}))
}

func TestSubsetOf(t *testing.T) {
	got := ir.NewValues(
		ir.V("a", uint32(7)),
		ir.V("b", 2.5),
		ir.V("inner", ir.NewValues(ir.V("s", "x"), ir.V("t", false))),
	)

	assert.True(t, subsetOf(ir.NewValues(ir.V("a", int64(7))), got))
	assert.True(t, subsetOf(ir.NewValues(ir.V("b", 2.5)), got))
	assert.True(t, subsetOf(ir.NewValues(ir.V("inner", ir.NewValues(ir.V("s", "x")))), got))
	assert.True(t, subsetOf(&ir.Values{}, nil))

	assert.False(t, subsetOf(ir.NewValues(ir.V("a", int64(8))), got))
	assert.False(t, subsetOf(ir.NewValues(ir.V("missing", true)), got))
	assert.False(t, subsetOf(ir.NewValues(ir.V("a", ir.NewValues())), got))
	assert.False(t, subsetOf(ir.NewValues(ir.V("a", int64(7))), nil))
}

func TestEvaluateAssertions(t *testing.T) {
	result := &Result{Trace: sampleTrace()}
	failures := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Name: "/a", Count: 2},
		{Type: AssertTraceCount, Name: "/a", Count: 9},
		{Type: "bogus"},
	})
	require.Len(t, failures, 2)
	assert.Contains(t, failures[0], "assertions[1]")
	assert.Contains(t, failures[1], "unknown assertion type")
}

func TestRender(t *testing.T) {
	trace := []TraceEvent{
		{Seq: 1, Kind: KindPublish, Name: "/t", Type: "std_msgs/Bool", Wire: []byte{1}, Values: ir.NewValues(ir.V("data", true))},
		{Seq: 2, Kind: KindReceive, Name: "/t", Type: "std_msgs/Bool", Values: ir.NewValues(ir.V("data", true))},
	}
	out, err := Render("bool", trace)
	require.NoError(t, err)
	assert.Equal(t, "# scenario: bool\n"+
		`{"kind":"publish","name":"/t","seq":1,"type":"std_msgs/Bool","values":{"data":true},"wire":"01"}`+"\n"+
		`{"kind":"receive","name":"/t","seq":2,"type":"std_msgs/Bool","values":{"data":true}}`+"\n",
		string(out))
}
