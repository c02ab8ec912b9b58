package lambda

import (
	"fmt"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
)

// Wildcard is the declaration type tag that accepts any value or subtree
// without conversion or validation.
const Wildcard = "*"

// Type tags accepted in declaration blocks.
var typeTags = map[string]bool{
	"string": true,
	"int":    true,
	"long":   true,
	"double": true,
	"bool":   true,
	"date":   true,
	"guid":   true,
	Wildcard: true,
}

// KnownType reports whether tag is part of the declaration type vocabulary.
func KnownType(tag string) bool {
	return typeTags[tag]
}

// Convert coerces value to the Go representation of the given type tag.
// String inputs are parsed; already-typed inputs (as produced by JSON payload
// conversion) are narrowed or passed through. The wildcard tag and the empty
// tag return the value unchanged.
func Convert(value any, tag string) (any, error) {
	if tag == "" || tag == Wildcard {
		return value, nil
	}
	switch tag {
	case "string":
		return ToString(value), nil
	case "int":
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != float64(int(v)) {
				return nil, fmt.Errorf("%v is not an integer", v)
			}
			return int(v), nil
		case string:
			i, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%q is not an int", v)
			}
			return i, nil
		}
	case "long":
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v != float64(int64(v)) {
				return nil, fmt.Errorf("%v is not an integer", v)
			}
			return int64(v), nil
		case string:
			i, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not a long", v)
			}
			return i, nil
		}
	case "double":
		switch v := value.(type) {
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case float64:
			return v, nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not a double", v)
			}
			return f, nil
		}
	case "bool":
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("%q is not a bool", v)
			}
			return b, nil
		}
	case "date":
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			t, err := dateparse.ParseAny(v)
			if err != nil {
				return nil, fmt.Errorf("%q is not a date: %w", v, err)
			}
			return t, nil
		}
	case "guid":
		switch v := value.(type) {
		case uuid.UUID:
			return v, nil
		case string:
			id, err := uuid.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("%q is not a guid", v)
			}
			return id, nil
		}
	default:
		return nil, fmt.Errorf("unknown type tag %q", tag)
	}
	return nil, fmt.Errorf("cannot convert %T to %s", value, tag)
}

// TypeOf returns the type tag for a Go value, used when rendering a tree back
// to script syntax. Untyped (string and nil) values return "".
func TypeOf(v any) string {
	switch v.(type) {
	case int:
		return "int"
	case int64:
		return "long"
	case float64:
		return "double"
	case bool:
		return "bool"
	case time.Time:
		return "date"
	case uuid.UUID:
		return "guid"
	}
	return ""
}

// ToString renders a value to its textual form.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case uuid.UUID:
		return x.String()
	case []byte:
		return string(x)
	}
	return fmt.Sprintf("%v", v)
}
