// Package queryir is the query representation for recorded messages.
//
// A query selects messages from the store and filters them with
// predicates over message columns or decoded field values:
//
//	[filter expressions] → [Query IR] → [SQL backend]
//
// Query and Predicate are sealed interfaces using the marker method
// pattern, so backends can switch over every node type exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case FieldEquals:
//	case SeqRange:
//	case And:
//	}
//
// Field paths address decoded values the way they appear in the stored
// canonical JSON: "stamp.sec" is the sec member of the stamp field.
// Literal values are limited to the scalars a message field can hold.
package queryir
