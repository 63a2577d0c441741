package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtmsg/internal/ir"
)

func TestStartSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sess, err := s.StartSession(ctx, "/talker")
	require.NoError(t, err)

	id, err := uuid.Parse(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, sess.ID, sessions[0].ID)
	assert.Equal(t, "/talker", sessions[0].Node)
	assert.Equal(t, sess.StartedAt.UnixNano(), sessions[0].StartedAt.UnixNano())
}

func TestRecordMessage_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sess, err := s.StartSession(ctx, "/talker")
	require.NoError(t, err)

	payload := []byte{0x05, 0x00, 0x00, 0x00, 'h', 'e', 'l', 'l', 'o'}
	values := ir.NewValues(ir.V("data", "hello"))
	require.NoError(t, sess.RecordMessage("/chatter", "std_msgs/String", payload, values))

	got, err := s.ReadMessages(ctx, sess.ID, "")
	require.NoError(t, err)
	require.Len(t, got, 1)

	m := got[0]
	assert.Equal(t, "/chatter", m.Topic)
	assert.Equal(t, "std_msgs/String", m.TypeName)
	assert.Equal(t, payload, m.Payload)
	assert.Equal(t, `{"data":"hello"}`, m.ValuesJSON)
	assert.Equal(t, ir.MessageHash("std_msgs/String", payload), m.ContentHash)
}

func TestReadMessages_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sess, err := s.StartSession(ctx, "/n")
	require.NoError(t, err)

	topics := []string{"/a", "/b", "/a", "/a", "/b"}
	for i, topic := range topics {
		_, err := s.WriteMessage(ctx, Message{
			SessionID: sess.ID,
			Topic:     topic,
			TypeName:  "std_msgs/Empty",
			Payload:   []byte{byte(i)},
		})
		require.NoError(t, err)
	}

	all, err := s.ReadMessages(ctx, sess.ID, "")
	require.NoError(t, err)
	require.Len(t, all, len(topics))
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Seq, all[i].Seq)
	}

	onlyA, err := s.ReadMessages(ctx, sess.ID, "/a")
	require.NoError(t, err)
	require.Len(t, onlyA, 3)
	assert.Equal(t, []byte{0}, onlyA[0].Payload)
	assert.Equal(t, []byte{2}, onlyA[1].Payload)
	assert.Equal(t, []byte{3}, onlyA[2].Payload)
}

func TestReadMessages_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadMessages(context.Background(), "missing", "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestWriteMessage_UnknownSessionRejected(t *testing.T) {
	s := createTestStore(t)

	_, err := s.WriteMessage(context.Background(), Message{
		SessionID: "no-such-session",
		Topic:     "/x",
		TypeName:  "std_msgs/Empty",
	})
	assert.Error(t, err, "foreign key should reject an unknown session")
}

func TestWriteMessage_NilValuesStoredAsEmptyObject(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sess, err := s.StartSession(ctx, "/n")
	require.NoError(t, err)
	require.NoError(t, sess.RecordMessage("/e", "std_msgs/Empty", nil, nil))

	got, err := s.ReadMessages(ctx, sess.ID, "/e")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "{}", got[0].ValuesJSON)
	assert.Empty(t, got[0].Payload)
}

func TestSessions_SurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	sess, err := s1.StartSession(ctx, "/a")
	require.NoError(t, err)
	require.NoError(t, sess.RecordMessage("/t", "std_msgs/Bool", []byte{1}, ir.NewValues(ir.V("data", true))))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.ReadMessages(ctx, sess.ID, "/t")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, `{"data":true}`, got[0].ValuesJSON)
}
