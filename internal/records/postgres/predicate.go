package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"communiserver/internal/scope"
)

// compiler turns a scope.Predicate into a SQL condition with positional
// args. Each store hands it a field map so predicate field names stay
// decoupled from physical columns (and boolean-shaped fields can expand to
// expressions like cardinality checks).
type compiler struct {
	fields map[string]string
	args   []any
}

func newCompiler(fields map[string]string) *compiler {
	return &compiler{fields: fields}
}

// compile returns the WHERE condition (without the WHERE keyword) and its
// args. The condition is always non-empty; All compiles to TRUE.
func (c *compiler) compile(pred scope.Predicate) (string, error) {
	if pred == nil {
		return "TRUE", nil
	}
	switch p := pred.(type) {
	case scope.All:
		return "TRUE", nil

	case scope.None:
		return "FALSE", nil

	case scope.Equals:
		col, err := c.column(p.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s", col, c.bind(p.Value)), nil

	case scope.In:
		if len(p.IDs) == 0 {
			return "FALSE", nil
		}
		col, err := c.column(p.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = ANY(%s)", col, c.bind(pq.Array(p.IDs))), nil

	case scope.TextMatch:
		if strings.TrimSpace(p.Query) == "" {
			return "TRUE", nil
		}
		arg := c.bind("%" + escapeLike(p.Query) + "%")
		parts := make([]string, 0, len(p.Fields))
		for _, field := range p.Fields {
			col, err := c.column(field)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s ILIKE %s", col, arg))
		}
		if len(parts) == 0 {
			return "TRUE", nil
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil

	case scope.TimeRange:
		col, err := c.column(p.Field)
		if err != nil {
			return "", err
		}
		var parts []string
		if p.From != nil {
			parts = append(parts, fmt.Sprintf("%s >= %s", col, c.bind(*p.From)))
		}
		if p.To != nil {
			parts = append(parts, fmt.Sprintf("%s < %s", col, c.bind(*p.To)))
		}
		if len(parts) == 0 {
			return "TRUE", nil
		}
		return strings.Join(parts, " AND "), nil

	case scope.NumberRange:
		col, err := c.column(p.Field)
		if err != nil {
			return "", err
		}
		var parts []string
		if p.Min != nil {
			parts = append(parts, fmt.Sprintf("%s >= %s", col, c.bind(*p.Min)))
		}
		if p.Max != nil {
			parts = append(parts, fmt.Sprintf("%s <= %s", col, c.bind(*p.Max)))
		}
		if len(parts) == 0 {
			return "TRUE", nil
		}
		return strings.Join(parts, " AND "), nil

	case scope.Bool:
		col, err := c.column(p.Field)
		if err != nil {
			return "", err
		}
		if p.Value {
			return col, nil
		}
		return "NOT " + col, nil

	case scope.And:
		return c.combine(p.Preds, " AND ")

	case scope.Or:
		return c.combine(p.Preds, " OR ")

	default:
		return "", fmt.Errorf("unsupported predicate type %T", pred)
	}
}

func (c *compiler) combine(preds []scope.Predicate, op string) (string, error) {
	if len(preds) == 0 {
		return "TRUE", nil
	}
	parts := make([]string, 0, len(preds))
	for _, sub := range preds {
		part, err := c.compile(sub)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return "(" + strings.Join(parts, op) + ")", nil
}

func (c *compiler) column(field string) (string, error) {
	col, ok := c.fields[field]
	if !ok {
		return "", fmt.Errorf("unknown predicate field %q", field)
	}
	return col, nil
}

func (c *compiler) bind(v any) string {
	c.args = append(c.args, v)
	return fmt.Sprintf("$%d", len(c.args))
}

// escapeLike escapes LIKE metacharacters so user text matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
