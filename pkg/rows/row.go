// Package rows models the open records served by the spreadsheet backend.
//
// A Row has no fixed schema: its columns are whatever the upstream delivers.
// Column order is preserved through decoding and encoding because display
// headers and export columns are derived from it.
package rows

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
)

// Row is an ordered mapping from column name to a decoded JSON value.
// Values are string, json.Number, bool, nil, or nested JSON (map/slice).
type Row struct {
	keys   []string
	values map[string]any
}

// Field is a single column/value pair used to build rows.
type Field struct {
	Key   string
	Value any
}

// New builds a row from fields in the given order.
// A repeated key keeps its first position and its last value.
func New(fields ...Field) Row {
	var r Row
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

// Set stores value under key, appending key if it is new.
func (r *Row) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the column names in upstream order.
func (r Row) Keys() []string {
	return slices.Clone(r.keys)
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.keys)
}

// Without returns a copy of the row with the named columns removed.
func (r Row) Without(columns ...string) Row {
	var out Row
	for _, k := range r.keys {
		if slices.Contains(columns, k) {
			continue
		}
		out.Set(k, r.values[k])
	}
	return out
}

// MarshalJSON encodes the row as a JSON object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("encode column %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order and numbers verbatim.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = Row{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("rows: expected JSON object, got %v", tok)
	}

	out := Row{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("rows: expected object key, got %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("rows: decode column %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return err
	}

	*r = out
	return nil
}

// Headers returns the columns of the first row, minus hidden ones.
// An empty set has no headers.
func Headers(rs []Row, hidden []string) []string {
	if len(rs) == 0 {
		return []string{}
	}
	headers := make([]string, 0, rs[0].Len())
	for _, k := range rs[0].keys {
		if slices.Contains(hidden, k) {
			continue
		}
		headers = append(headers, k)
	}
	return headers
}

// Columns returns the union of all row columns in order of first appearance.
func Columns(rs []Row) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, r := range rs {
		for _, k := range r.keys {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	return cols
}
