package queryir

// Query represents an abstract query over recorded messages.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate represents a filter condition on one message.
//
// This is a sealed interface - only types in this package implement it.
// The fragment has no OR: run separate queries and merge by seq instead.
type Predicate interface {
	predicateNode()
}

// Column names a message column a predicate can compare.
type Column string

const (
	ColumnSession Column = "session_id"
	ColumnTopic   Column = "topic"
	ColumnType    Column = "type_name"
	ColumnHash    Column = "content_hash"
)

// Columns lists the comparable columns in a stable order.
var Columns = []Column{ColumnSession, ColumnTopic, ColumnType, ColumnHash}

// Select reads messages, optionally from a single session, in seq order.
//
// Semantics:
//
//	SELECT * FROM messages WHERE session_id = <session> AND <filter>
//	ORDER BY seq LIMIT <limit>
//
// Example:
//
//	Select{
//	  Session: sess.ID,
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Column: ColumnTopic, Value: "/chatter"},
//	    FieldEquals{Path: "data", Value: "hello"},
//	  }},
//	}
type Select struct {
	Session string    // empty = every session
	Filter  Predicate // nil = no filter
	Limit   int       // zero = unlimited
}

func (Select) queryNode() {}

// Equals compares a message column to a string.
type Equals struct {
	Column Column
	Value  string
}

func (Equals) predicateNode() {}

// FieldEquals compares a decoded field, addressed by dotted path, to a
// scalar: string, int64, uint64, float64 or bool. Messages without the
// field never match.
type FieldEquals struct {
	Path  string
	Value any
}

func (FieldEquals) predicateNode() {}

// SeqRange keeps messages with After < seq < Before. A zero bound is open.
type SeqRange struct {
	After  int64
	Before int64
}

func (SeqRange) predicateNode() {}

// And represents a conjunction of predicates (empty = always true).
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
