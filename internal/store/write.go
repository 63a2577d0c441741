package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/rtmsg/internal/ir"
)

// Message is one recorded message.
type Message struct {
	Seq         int64
	SessionID   string
	Topic       string
	TypeName    string
	Payload     []byte
	ValuesJSON  string
	ContentHash string
}

// Session is an open recording session. It implements node.Recorder.
type Session struct {
	store     *Store
	ID        string
	Node      string
	StartedAt time.Time

	// WireVersion is the encoding the session's payloads were written in.
	// Empty for sessions recorded before it was tracked.
	WireVersion string
}

// StartSession inserts a new session row for the named node.
// Session IDs are UUIDv7 so they sort by creation time.
func (s *Store) StartSession(ctx context.Context, node string) (*Session, error) {
	sess := &Session{
		store:     s,
		ID:        uuid.Must(uuid.NewV7()).String(),
		Node:      node,
		StartedAt: time.Now().UTC(),

		WireVersion: ir.WireVersion,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, node, started_at, wire_version)
		VALUES (?, ?, ?, ?)
	`, sess.ID, sess.Node, sess.StartedAt.UnixNano(), sess.WireVersion)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return sess, nil
}

// WriteMessage appends a message to the log and returns its seq.
// ContentHash is computed when empty. Seq on the argument is ignored.
func (s *Store) WriteMessage(ctx context.Context, m Message) (int64, error) {
	if m.ContentHash == "" {
		m.ContentHash = ir.MessageHash(m.TypeName, m.Payload)
	}
	if m.ValuesJSON == "" {
		m.ValuesJSON = "{}"
	}
	if m.Payload == nil {
		m.Payload = []byte{}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages
		(session_id, topic, type_name, payload, values_json, content_hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		m.SessionID,
		m.Topic,
		m.TypeName,
		m.Payload,
		m.ValuesJSON,
		m.ContentHash,
	)
	if err != nil {
		return 0, fmt.Errorf("write message: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write message: %w", err)
	}
	return seq, nil
}

// RecordMessage appends one message to the session.
func (sess *Session) RecordMessage(topic, typeName string, payload []byte, values *ir.Values) error {
	valuesJSON, err := marshalValues(values)
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	_, err = sess.store.WriteMessage(context.Background(), Message{
		SessionID:  sess.ID,
		Topic:      topic,
		TypeName:   typeName,
		Payload:    payload,
		ValuesJSON: valuesJSON,
	})
	return err
}
