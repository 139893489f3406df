// Package record gives defensive, typed access to the untyped JSON objects
// returned by the upstream POS API. Accessors never fail: missing or
// mistyped fields read as zero values.
package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Record map[string]any

// String returns the first non-empty string-like value among keys.
func (r Record) String(keys ...string) string {
	for _, key := range keys {
		switch v := r[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

// ID returns the record identifier, accepting both "_id" and "id".
func (r Record) ID() string {
	return r.String("_id", "id")
}

// Decimal returns the first numeric value among keys. Numeric strings such as
// "1,500.50" are accepted. The bool reports whether any key held a number.
func (r Record) Decimal(keys ...string) (decimal.Decimal, bool) {
	for _, key := range keys {
		if d, ok := ToDecimal(r[key]); ok {
			return d, true
		}
	}
	return decimal.Zero, false
}

// Int returns the first numeric value among keys truncated to an int.
func (r Record) Int(keys ...string) int {
	d, _ := r.Decimal(keys...)
	return int(d.IntPart())
}

// Records returns the object elements of the array stored at key.
func (r Record) Records(key string) []Record {
	items, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			out = append(out, Record(v))
		case Record:
			out = append(out, v)
		}
	}
	return out
}

// Object returns the nested object at key, or nil.
func (r Record) Object(key string) Record {
	switch v := r[key].(type) {
	case map[string]any:
		return Record(v)
	case Record:
		return v
	}
	return nil
}

func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// ToDecimal converts a decoded JSON value into a decimal.
func ToDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case decimal.Decimal:
		return v, true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	}
	return decimal.Zero, false
}

// Decode parses an upstream payload that is either a JSON array of objects
// or an envelope carrying the array under "records", "data" or "items".
func Decode(body []byte) ([]Record, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	decoder := json.NewDecoder(strings.NewReader(trimmed))
	decoder.UseNumber()

	switch trimmed[0] {
	case '[':
		var items []Record
		if err := decoder.Decode(&items); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		return compact(items), nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := decoder.Decode(&envelope); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		for _, key := range []string{"records", "data", "items"} {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			return Decode(raw)
		}
		return nil, fmt.Errorf("decode envelope: no records field")
	}
	return nil, fmt.Errorf("decode: unexpected payload starting with %q", trimmed[0])
}

func compact(items []Record) []Record {
	out := items[:0]
	for _, item := range items {
		if item != nil {
			out = append(out, item)
		}
	}
	return out
}
