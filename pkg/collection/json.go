package collection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	mferrors "github.com/ghdlab/mapflow/pkg/common/errors"
)

// ParseJSON decodes a top-level JSON array into a Sequence and a top-level
// JSON object into a Mapping whose key order follows the document.
func ParseJSON(data []byte) (Collection, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("collection: parse json: %w", err)
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, mferrors.NewInvalidInputError("collection", tok, "json document must be an array or object")
	}

	switch delim {
	case '[':
		seq := Sequence{}
		for dec.More() {
			var v interface{}
			if err := dec.Decode(&v); err != nil {
				return nil, fmt.Errorf("collection: parse json item %d: %w", len(seq), err)
			}
			seq = append(seq, v)
		}
		if err := expectEnd(dec); err != nil {
			return nil, err
		}
		return seq, nil

	case '{':
		m := NewMapping()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("collection: parse json key: %w", err)
			}
			key, _ := keyTok.(string)
			var v interface{}
			if err := dec.Decode(&v); err != nil {
				return nil, fmt.Errorf("collection: parse json value for %q: %w", key, err)
			}
			m.Set(key, v)
		}
		if err := expectEnd(dec); err != nil {
			return nil, err
		}
		return m, nil
	}

	return nil, mferrors.NewInvalidInputError("collection", delim, "unexpected json delimiter")
}

// expectEnd consumes the closing delimiter and requires nothing to follow it.
func expectEnd(dec *json.Decoder) error {
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("collection: parse json: %w", err)
	}
	if tok, err := dec.Token(); err != io.EOF {
		if err != nil {
			return fmt.Errorf("collection: parse json: %w", err)
		}
		return fmt.Errorf("collection: parse json: unexpected %v after document", tok)
	}
	return nil
}

// ReadJSON reads all of r and parses it with ParseJSON.
func ReadJSON(r io.Reader) (Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("collection: read json: %w", err)
	}
	return ParseJSON(data)
}

// MarshalJSON encodes a Placeholder as null.
func (placeholder) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON encodes the mapping as an object in key order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, k, m.values[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes the table as an object of rows in label order, each
// row an object in column order. Rows filled by Rebuild encode as null.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, l := range t.labels {
		if i > 0 {
			buf.WriteByte(',')
		}
		if t.missing[l] {
			if err := writeMember(&buf, l, nil); err != nil {
				return nil, err
			}
			continue
		}

		key, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":{")
		row := t.rows[l]
		n := 0
		for _, c := range t.columns {
			v, ok := row[c]
			if !ok {
				continue
			}
			if n > 0 {
				buf.WriteByte(',')
			}
			if err := writeMember(&buf, c, v); err != nil {
				return nil, err
			}
			n++
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, value interface{}) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("collection: marshal %q: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
