package queryir

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Validate checks a query before it reaches a backend and returns every
// problem found, joined.
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	v := &validator{}
	v.validateQuery(q)
	return errors.Join(v.errs...)
}

// validator accumulates errors during traversal.
type validator struct {
	errs []error
}

func (v *validator) addf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addf("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	default:
		v.addf("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.Limit < 0 {
		v.addf("limit %d is negative", sel.Limit)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		// no filter
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case FieldEquals:
		v.validateFieldEquals(pred)
	case *FieldEquals:
		v.validateFieldEquals(*pred)
	case SeqRange:
		v.validateSeqRange(pred)
	case *SeqRange:
		v.validateSeqRange(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addf("unknown predicate type %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	if !slices.Contains(Columns, eq.Column) {
		v.addf("unknown column %q", eq.Column)
	}
}

func (v *validator) validateFieldEquals(fe FieldEquals) {
	if err := checkPath(fe.Path); err != nil {
		v.errs = append(v.errs, err)
	}
	switch x := fe.Value.(type) {
	case string, int64, uint64, bool:
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			v.addf("field %s: %v never matches a stored value", fe.Path, x)
		}
	default:
		v.addf("field %s: unsupported value type %T", fe.Path, fe.Value)
	}
}

func (v *validator) validateSeqRange(r SeqRange) {
	if r.After < 0 || r.Before < 0 {
		v.addf("seq bounds must not be negative")
	}
	if r.Before != 0 && r.Before <= r.After+1 {
		v.addf("seq range (%d, %d) is empty", r.After, r.Before)
	}
}

func (v *validator) validateAnd(and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(sub)
	}
}

// checkPath accepts dotted identifier paths such as "stamp.sec".
func checkPath(path string) error {
	if path == "" {
		return errors.New("empty field path")
	}
	for _, seg := range strings.Split(path, ".") {
		if !isIdentifier(seg) {
			return fmt.Errorf("field path %q: invalid segment %q", path, seg)
		}
	}
	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
