// Package placestate reconciles a user's raw place-interaction mapping into one
// canonical done/saved view per place.
//
// The raw mapping may carry several keys for the same place (legacy writes keyed
// by something other than the place id) and records in older shapes. Iteration
// order matters for equal timestamps, so the mapping is kept as an ordered list.
// That order is whatever the source hands back: Postgres JSONB returns keys in
// its canonical order (shorter keys first, then bytewise), not insertion order,
// and Firestore maps go through FromMap.
package placestate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// RawEntry is one key of the per-user mapping with its undecoded record.
type RawEntry struct {
	Key    string
	Record any
}

// Raw is the per-user interaction mapping in iteration order.
type Raw []RawEntry

// FromMap orders a plain map by key so iteration is deterministic.
func FromMap(m map[string]any) Raw {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	raw := make(Raw, 0, len(keys))
	for _, k := range keys {
		raw = append(raw, RawEntry{Key: k, Record: m[k]})
	}
	return raw
}

// Map flattens the mapping; later duplicates of the same key overwrite earlier ones.
func (r Raw) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, e := range r {
		m[e.Key] = e.Record
	}
	return m
}

// UnmarshalJSON decodes a JSON object keeping the key order of the document
// text. It does not recover the order in which keys were first written.
func (r *Raw) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = Raw{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("placestate: expected object, got %v", tok)
	}

	out := Raw{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("placestate: unexpected key token %v", tok)
		}
		var record any
		if err := dec.Decode(&record); err != nil {
			return err
		}
		out = append(out, RawEntry{Key: key, Record: record})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// MarshalJSON encodes the mapping as an object in iteration order.
func (r Raw) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Record)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
