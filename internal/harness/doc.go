// Package harness runs message exchange scenarios against an in-memory
// middleware and checks the observed trace.
//
// # Scenario Format
//
//	name: add_two_ints
//	description: "What this scenario exercises"
//	namespace: /math
//	schemas:
//	  services:
//	    demo/AddTwoInts: |
//	      int64 a
//	      int64 b
//	      ---
//	      int64 sum
//	  dirs: [../msgs]
//	subscriptions:
//	  - topic: chatter
//	    type: std_msgs/String
//	servers:
//	  - service: add
//	    type: demo/AddTwoInts
//	    response: { sum: 3 }
//	steps:
//	  - publish: chatter
//	    type: std_msgs/String
//	    values: { data: hello }
//	  - call: add
//	    type: demo/AddTwoInts
//	    values: { a: 1, b: 2 }
//	assertions:
//	  - type: trace_count
//	    kind: receive
//	    name: /math/chatter
//	    count: 1
//
// # Trace
//
// Every publish, receive, call, serve and response is a TraceEvent. Steps
// run one at a time and each waits until all of its events have arrived,
// so seq numbers are reproducible. Publish and call events carry the wire
// bytes; all events carry decoded values.
//
// # Assertion Types
//
//   - trace_contains: an event with kind and name carries a values subset
//   - trace_order: "kind name" events appear in the listed order
//   - trace_count: exactly count events match kind and name
//
// # Golden Files
//
// RunWithGolden renders the trace with Render and compares it against
// testdata/golden/<name>.golden using goldie.
package harness
