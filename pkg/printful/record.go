package printful

import (
	"encoding/json"
	"strconv"
)

// Record is one raw JSON object from the Printful API. Numbers are kept as
// json.Number so re-encoding a record is byte stable.
type Record map[string]interface{}

// Has reports whether key is present and not null
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// String returns the value at key as a string. Numbers are formatted without
// loss; anything else yields "".
func (r Record) String(key string) string {
	return toString(r[key])
}

// ID returns the id at key coerced to a string, or "" when missing.
func (r Record) ID(key string) string {
	return toString(r[key])
}

// Map returns the nested object at key
func (r Record) Map(key string) (Record, bool) {
	switch v := r[key].(type) {
	case map[string]interface{}:
		return Record(v), true
	case Record:
		return v, true
	}
	return nil, false
}

// Slice returns the nested array of objects at key, skipping non objects
func (r Record) Slice(key string) []Record {
	arr, ok := r[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// Clone returns a shallow copy
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return ""
}
