// Package querysql compiles queryir queries to parameterized SQLite over
// the store's messages table.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/rtmsg/internal/queryir"
)

// MessageColumns is the column list every compiled query selects, in the
// order store scans them.
const MessageColumns = "seq, session_id, topic, type_name, payload, values_json, content_hash"

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// All queries order by seq. All values are parameterized, never
// interpolated; field paths are validated identifiers and are bound as
// json_extract path parameters.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile validates q and converts it to SQL with its parameters.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	var (
		where  []string
		params []any
	)
	if q.Session != "" {
		where = append(where, "session_id = ?")
		params = append(params, q.Session)
	}
	if q.Filter != nil {
		sql, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		if sql != "" {
			where = append(where, sql)
			params = append(params, filterParams...)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT " + MessageColumns + " FROM messages")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY seq ASC")
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return b.String(), params, nil
}

// compilePredicate returns an empty fragment for predicates that are
// always true.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.FieldEquals:
		return c.compileFieldEquals(pred)
	case *queryir.FieldEquals:
		return c.compileFieldEquals(*pred)
	case queryir.SeqRange:
		return c.compileSeqRange(pred)
	case *queryir.SeqRange:
		return c.compileSeqRange(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals compiles an Equals predicate to "column = ?". The column
// is one of queryir.Columns, checked by Validate.
func (c *SQLCompiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	return fmt.Sprintf("%s = ?", eq.Column), []any{eq.Value}, nil
}

// compileFieldEquals matches a member of values_json. SQLite reports JSON
// booleans as integers, so bools compare as 0 or 1.
func (c *SQLCompiler) compileFieldEquals(fe queryir.FieldEquals) (string, []any, error) {
	param, err := valueParam(fe.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", fe.Path, err)
	}
	return "json_extract(values_json, ?) = ?", []any{"$." + fe.Path, param}, nil
}

func (c *SQLCompiler) compileSeqRange(r queryir.SeqRange) (string, []any, error) {
	var (
		parts  []string
		params []any
	)
	if r.After != 0 {
		parts = append(parts, "seq > ?")
		params = append(params, r.After)
	}
	if r.Before != 0 {
		parts = append(parts, "seq < ?")
		params = append(params, r.Before)
	}
	return strings.Join(parts, " AND "), params, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	var (
		parts  []string
		params []any
	)
	for _, pred := range and.Predicates {
		sql, p, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	if len(parts) > 1 {
		return "(" + strings.Join(parts, " AND ") + ")", params, nil
	}
	return strings.Join(parts, ""), params, nil
}

// valueParam converts a literal to a driver parameter.
func valueParam(v any) (any, error) {
	switch x := v.(type) {
	case string, int64, float64:
		return x, nil
	case uint64:
		// SQLite integers are signed; larger values are stored as reals.
		if x > 1<<63-1 {
			return float64(x), nil
		}
		return int64(x), nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
