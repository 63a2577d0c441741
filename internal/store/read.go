package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/rtmsg/internal/queryir"
	"github.com/roach88/rtmsg/internal/querysql"
)

// ReadMessages returns the messages of a session in seq order.
// An empty sessionID or topic selects every session or topic.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadMessages(ctx context.Context, sessionID, topic string) ([]Message, error) {
	q := queryir.Select{Session: sessionID}
	if topic != "" {
		q.Filter = queryir.Equals{Column: queryir.ColumnTopic, Value: topic}
	}
	return s.QueryMessages(ctx, q)
}

// QueryMessages runs a message query in seq order.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) QueryMessages(ctx context.Context, q queryir.Query) ([]Message, error) {
	query, args, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// Sessions lists recorded sessions, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node, started_at, wire_version
		FROM sessions
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var (
			sess    Session
			started int64
		)
		if err := rows.Scan(&sess.ID, &sess.Node, &started, &sess.WireVersion); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.store = s
		sess.StartedAt = time.Unix(0, started).UTC()
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// scanMessage reads a row selected with querysql.MessageColumns.
func scanMessage(rows *sql.Rows) (Message, error) {
	var m Message
	err := rows.Scan(&m.Seq, &m.SessionID, &m.Topic, &m.TypeName, &m.Payload, &m.ValuesJSON, &m.ContentHash)
	if err != nil {
		return Message{}, fmt.Errorf("scan message: %w", err)
	}
	return m, nil
}
