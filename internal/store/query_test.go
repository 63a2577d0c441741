package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtmsg/internal/ir"
	"github.com/roach88/rtmsg/internal/queryir"
)

// seedQueryStore records two sessions with mixed topics and types.
func seedQueryStore(t *testing.T) (*Store, *Session, *Session) {
	t.Helper()
	s := createTestStore(t)
	ctx := context.Background()

	a, err := s.StartSession(ctx, "/a")
	require.NoError(t, err)
	b, err := s.StartSession(ctx, "/b")
	require.NoError(t, err)

	header := func(seq uint32, sec uint32, frame string) *ir.Values {
		return ir.NewValues(
			ir.V("seq", seq),
			ir.V("stamp", ir.Time{Sec: sec, Nsec: 0}),
			ir.V("frame_id", frame),
		)
	}
	record := func(sess *Session, topic, typeName string, v *ir.Values) {
		require.NoError(t, sess.RecordMessage(topic, typeName, []byte{byte(len(topic))}, v))
	}

	// seqs 1 to 6
	record(a, "/chatter", "std_msgs/String", ir.NewValues(ir.V("data", "hello")))
	record(a, "/header", "std_msgs/Header", header(1, 10, "map"))
	record(b, "/chatter", "std_msgs/String", ir.NewValues(ir.V("data", "42")))
	record(a, "/header", "std_msgs/Header", header(2, 12, "odom"))
	record(a, "/flag", "std_msgs/Bool", ir.NewValues(ir.V("data", true)))
	record(a, "/point", "geometry_msgs/Point", ir.NewValues(ir.V("x", 1.5), ir.V("y", -2.0), ir.V("z", 0.0)))
	return s, a, b
}

func seqs(msgs []Message) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.Seq
	}
	return out
}

func TestQueryMessages(t *testing.T) {
	s, a, b := seedQueryStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query queryir.Select
		want  []int64
	}{
		{"all sessions", queryir.Select{}, []int64{1, 2, 3, 4, 5, 6}},
		{"one session", queryir.Select{Session: b.ID}, []int64{3}},
		{"type", queryir.Select{Filter: queryir.Equals{Column: queryir.ColumnType, Value: "std_msgs/Header"}}, []int64{2, 4}},
		{"string field", queryir.Select{Filter: queryir.FieldEquals{Path: "data", Value: "hello"}}, []int64{1}},
		{"numeric string is not a number", queryir.Select{Filter: queryir.FieldEquals{Path: "data", Value: int64(42)}}, []int64{}},
		{"nested time", queryir.Select{Filter: queryir.FieldEquals{Path: "stamp.sec", Value: int64(12)}}, []int64{4}},
		{"bool", queryir.Select{Filter: queryir.FieldEquals{Path: "data", Value: true}}, []int64{5}},
		{"integral float", queryir.Select{Filter: queryir.FieldEquals{Path: "y", Value: -2.0}}, []int64{6}},
		{"seq range", queryir.Select{Session: a.ID, Filter: queryir.SeqRange{After: 1, Before: 5}}, []int64{2, 4}},
		{"limit", queryir.Select{Limit: 2}, []int64{1, 2}},
		{"conjunction", queryir.Select{Session: a.ID, Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Column: queryir.ColumnTopic, Value: "/header"},
			queryir.FieldEquals{Path: "frame_id", Value: "map"},
		}}}, []int64{2}},
		{"missing field", queryir.Select{Filter: queryir.FieldEquals{Path: "nope", Value: "x"}}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.QueryMessages(ctx, tt.query)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, seqs(got))
		})
	}
}

func TestQueryMessages_ParsedFilter(t *testing.T) {
	s, _, _ := seedQueryStore(t)

	filter, err := queryir.ParseFilter([]string{"type=std_msgs/Header", "stamp.sec=10"})
	require.NoError(t, err)
	got, err := s.QueryMessages(context.Background(), queryir.Select{Filter: filter})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"frame_id":"map","seq":1,"stamp":{"nsec":0,"sec":10}}`, got[0].ValuesJSON)
}

func TestQueryMessages_Invalid(t *testing.T) {
	s := createTestStore(t)
	_, err := s.QueryMessages(context.Background(), queryir.Select{Limit: -1})
	require.Error(t, err)
}
