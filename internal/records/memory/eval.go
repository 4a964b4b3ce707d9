package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"communiserver/internal/scope"
)

// fieldGetter resolves a predicate field name to a record's value. A false
// second return marks an unknown field, which is an error, not a non-match.
type fieldGetter func(field string) (any, bool)

// matches evaluates a predicate against one record. This mirrors the SQL
// compilation in the postgres package; both interpreters must agree on
// semantics or scoped memory tests would not cover the real store.
func matches(pred scope.Predicate, get fieldGetter) (bool, error) {
	if pred == nil {
		return true, nil
	}
	switch p := pred.(type) {
	case scope.All:
		return true, nil

	case scope.None:
		return false, nil

	case scope.Equals:
		v, ok := get(p.Field)
		if !ok {
			return false, fmt.Errorf("unknown predicate field %q", p.Field)
		}
		return equalValues(v, p.Value), nil

	case scope.In:
		v, ok := get(p.Field)
		if !ok {
			return false, fmt.Errorf("unknown predicate field %q", p.Field)
		}
		id, ok := asUUID(v)
		if !ok {
			return false, nil
		}
		for _, candidate := range p.IDs {
			if id == candidate {
				return true, nil
			}
		}
		return false, nil

	case scope.TextMatch:
		query := strings.ToLower(strings.TrimSpace(p.Query))
		if query == "" {
			return true, nil
		}
		for _, field := range p.Fields {
			v, ok := get(field)
			if !ok {
				return false, fmt.Errorf("unknown predicate field %q", field)
			}
			if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), query) {
				return true, nil
			}
		}
		return false, nil

	case scope.TimeRange:
		v, ok := get(p.Field)
		if !ok {
			return false, fmt.Errorf("unknown predicate field %q", p.Field)
		}
		t, ok := asTime(v)
		if !ok {
			return false, nil
		}
		if p.From != nil && t.Before(*p.From) {
			return false, nil
		}
		if p.To != nil && !t.Before(*p.To) {
			return false, nil
		}
		return true, nil

	case scope.NumberRange:
		v, ok := get(p.Field)
		if !ok {
			return false, fmt.Errorf("unknown predicate field %q", p.Field)
		}
		n, ok := asFloat(v)
		if !ok {
			return false, nil
		}
		if p.Min != nil && n < *p.Min {
			return false, nil
		}
		if p.Max != nil && n > *p.Max {
			return false, nil
		}
		return true, nil

	case scope.Bool:
		v, ok := get(p.Field)
		if !ok {
			return false, fmt.Errorf("unknown predicate field %q", p.Field)
		}
		b, ok := v.(bool)
		if !ok {
			return false, nil
		}
		return b == p.Value, nil

	case scope.And:
		for _, sub := range p.Preds {
			ok, err := matches(sub, get)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case scope.Or:
		for _, sub := range p.Preds {
			ok, err := matches(sub, get)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("unsupported predicate type %T", pred)
	}
}

func errUnknownField(field string) error {
	return fmt.Errorf("unknown field %q", field)
}

func equalValues(a, b any) bool {
	if aID, ok := asUUID(a); ok {
		if bID, ok := asUUID(b); ok {
			return aID == bID
		}
		return false
	}
	if aStr, ok := asString(a); ok {
		if bStr, ok := asString(b); ok {
			return aStr == bStr
		}
		return false
	}
	if aNum, ok := asFloat(a); ok {
		if bNum, ok := asFloat(b); ok {
			return aNum == bNum
		}
	}
	return a == b
}

func asUUID(v any) (uuid.UUID, bool) {
	switch id := v.(type) {
	case uuid.UUID:
		return id, true
	case *uuid.UUID:
		if id == nil {
			return uuid.Nil, false
		}
		return *id, true
	}
	return uuid.Nil, false
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	}
	return "", false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	}
	return time.Time{}, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
