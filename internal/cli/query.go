package cli

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/roach88/rtmsg/internal/queryir"
	"github.com/roach88/rtmsg/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database string
	Session  string
	Limit    int
	Sessions bool
}

// RecordedMessage is the JSON form of a stored message.
type RecordedMessage struct {
	Seq     int64           `json:"seq"`
	Session string          `json:"session"`
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Hash    string          `json:"hash"`
	Wire    string          `json:"wire"`
	Values  json.RawMessage `json:"values"`
}

// SessionInfo is the JSON form of a recorded session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Node      string    `json:"node"`
	StartedAt time.Time `json:"started_at"`

	WireVersion string `json:"wire_version"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [filter]...",
		Short: "Search messages recorded by run --db",
		Long: `Search recorded messages in seq order.

Filters are ANDed together:
  topic=/chatter        column match (session, topic, type, hash)
  stamp.sec=12          decoded field match; the value is a YAML scalar
  seq>10  seq<20        seq bounds

Examples:
  rtmsg query --db ./rtmsg.db --sessions
  rtmsg query --db ./rtmsg.db topic=/chatter data=hello
  rtmsg query --db ./rtmsg.db --session 0192... type=std_msgs/Header --limit 5`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "only this session")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum messages (0 = all)")
	cmd.Flags().BoolVar(&opts.Sessions, "sessions", false, "list sessions instead of messages")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runQuery(opts *QueryOptions, filters []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	// Open would create a missing database.
	if _, err := os.Stat(opts.Database); err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("database: %v", err), nil)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer func() {
		if err := st.Close(); err != nil {
			opts.Logger.Error("error closing database", "error", err)
		}
	}()

	if opts.Sessions {
		return listSessions(f, st, cmd)
	}

	filter, err := queryir.ParseFilter(filters)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeQuery, err.Error(), nil)
	}
	q := queryir.Select{Session: opts.Session, Filter: filter, Limit: opts.Limit}
	msgs, err := st.QueryMessages(cmd.Context(), q)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeQuery, err.Error(), nil)
	}
	f.VerboseLog("%d message(s) matched", len(msgs))

	if f.Format == "json" {
		out := make([]RecordedMessage, len(msgs))
		for i, m := range msgs {
			out[i] = RecordedMessage{
				Seq:     m.Seq,
				Session: m.SessionID,
				Topic:   m.Topic,
				Type:    m.TypeName,
				Hash:    m.ContentHash,
				Wire:    hex.EncodeToString(m.Payload),
				Values:  json.RawMessage(m.ValuesJSON),
			}
		}
		return f.Success(out)
	}
	for _, m := range msgs {
		fmt.Fprintf(f.Writer, "%d\t%s\t%s\t%s\n", m.Seq, m.Topic, m.TypeName, m.ValuesJSON)
	}
	return nil
}

func listSessions(f *OutputFormatter, st *store.Store, cmd *cobra.Command) error {
	sessions, err := st.Sessions(cmd.Context())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeQuery, err.Error(), nil)
	}
	if f.Format == "json" {
		out := make([]SessionInfo, len(sessions))
		for i, s := range sessions {
			out[i] = SessionInfo{ID: s.ID, Node: s.Node, StartedAt: s.StartedAt, WireVersion: s.WireVersion}
		}
		return f.Success(out)
	}
	for _, s := range sessions {
		fmt.Fprintf(f.Writer, "%s\t%s\t%s\n", s.ID, s.Node, s.StartedAt.Format(time.RFC3339Nano))
	}
	return nil
}
