package docstore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one entity: an open set of fields decoded from the document.
type Record map[string]any

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge returns a copy of r with every field of partial overwriting r's.
//
// The merge is shallow: a nested record in partial replaces the nested record
// in r as a whole.
func (r Record) Merge(partial Record) Record {
	out := make(Record, len(r)+len(partial))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range partial {
		out[k] = cloneValue(v)
	}
	return out
}

// ID returns the canonical id held in field, if any.
func (r Record) ID(field string) (string, bool) {
	v, ok := r[field]
	if !ok {
		return "", false
	}
	return CanonicalID(v)
}

// CanonicalID converts an id value to the string used for comparisons.
//
// Numbers are formatted without exponent or trailing zeros so that a numeric
// id read from JSON or YAML matches the same id read from XML or a URL.
func CanonicalID(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int:
		return strconv.Itoa(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		if isIntegerLiteral(t.String()) {
			return t.String(), true
		}
		if n, err := t.Float64(); err == nil {
			return strconv.FormatFloat(n, 'f', -1, 64), true
		}
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(t), true
	}
}

// asRecord returns v as a Record when it is a mapping.
func asRecord(v any) (Record, bool) {
	switch t := v.(type) {
	case Record:
		return t, true
	case map[string]any:
		return Record(t), true
	default:
		return nil, false
	}
}

// isIntegerLiteral reports whether a JSON number literal has no fraction or
// exponent.
func isIntegerLiteral(s string) bool {
	return s != "" && !strings.ContainsAny(s, ".eE")
}

// Normalize converts a decoded tree to the canonical in-memory form: mappings
// become Record, sequences []any, integral numbers int64 and other numbers
// float64. Integers beyond int64 are kept as their json.Number literal so that
// they round trip exactly.
func Normalize(v any) any {
	switch t := v.(type) {
	case Record:
		for k, e := range t {
			t[k] = Normalize(e)
		}
		return t
	case map[string]any:
		out := make(Record, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	case map[any]any:
		out := make(Record, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = Normalize(e)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if isIntegerLiteral(t.String()) {
			return t
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}
		return json.Number(strconv.FormatUint(t, 10))
	case float32:
		return float64(t)
	default:
		return v
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return Record(t).Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
