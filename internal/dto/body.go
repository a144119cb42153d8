package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotObject    = errors.New("request body must be a JSON object")
	ErrInvalidValue = errors.New("invalid value")
)

// Body is a decoded JSON object request body. Members are kept raw so that
// presence, null and type errors can be told apart field by field, and keys
// keep the order they had in the request.
type Body struct {
	fields map[string]json.RawMessage
	keys   []string
}

// DecodeBody decodes data as a JSON object.
func DecodeBody(data []byte) (Body, error) {
	var b Body
	if err := json.Unmarshal(data, &b); err != nil {
		return Body{}, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if !b.IsObject() {
		return Body{}, ErrNotObject
	}
	return b, nil
}

// UnmarshalJSON walks the object token by token so key order survives.
// A repeated key keeps its first position and its last value.
func (b *Body) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return ErrNotObject
	}

	fields := map[string]json.RawMessage{}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotObject, err)
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: %v", ErrNotObject, err)
		}
		if _, seen := fields[key]; !seen {
			keys = append(keys, key)
		}
		fields[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotObject, err)
	}

	b.fields, b.keys = fields, keys
	return nil
}

// IsObject reports whether b was decoded from a JSON object.
func (b Body) IsObject() bool { return b.fields != nil }

func (b Body) Has(key string) bool {
	_, ok := b.fields[key]
	return ok
}

// Keys returns the member names in request order.
func (b Body) Keys() []string { return b.keys }

// UnknownKey returns the first key, in request order, that is not in allowed.
func (b Body) UnknownKey(allowed ...string) (string, bool) {
	for _, k := range b.keys {
		if !contains(allowed, k) {
			return k, true
		}
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (b Body) isNull(key string) bool {
	return bytes.Equal(bytes.TrimSpace(b.fields[key]), []byte("null"))
}

// String returns the member as a string. v is nil when the member is absent
// or JSON null.
func (b Body) String(key string) (v *string, present bool, err error) {
	if !b.Has(key) {
		return nil, false, nil
	}
	if b.isNull(key) {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(b.fields[key], &s); err != nil {
		return nil, true, fmt.Errorf("%s: %w", key, ErrInvalidValue)
	}
	return &s, true, nil
}

func (b Body) Bool(key string) (v *bool, present bool, err error) {
	if !b.Has(key) {
		return nil, false, nil
	}
	if b.isNull(key) {
		return nil, true, nil
	}
	var x bool
	if err := json.Unmarshal(b.fields[key], &x); err != nil {
		return nil, true, fmt.Errorf("%s: %w", key, ErrInvalidValue)
	}
	return &x, true, nil
}

// Number returns the member as a JSON number literal. Strings holding digits
// are not numbers.
func (b Body) Number(key string) (v *json.Number, present bool, err error) {
	if !b.Has(key) {
		return nil, false, nil
	}
	if b.isNull(key) {
		return nil, true, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b.fields[key]))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return nil, true, fmt.Errorf("%s: %w", key, ErrInvalidValue)
	}
	n, ok := x.(json.Number)
	if !ok {
		return nil, true, fmt.Errorf("%s: %w", key, ErrInvalidValue)
	}
	return &n, true, nil
}

// Deadline returns the member parsed with ParseDeadline.
func (b Body) Deadline(key string) (v *time.Time, present bool, err error) {
	s, present, err := b.String(key)
	if err != nil || s == nil {
		if err != nil {
			err = fmt.Errorf("%s: %w", key, ErrInvalidDeadline)
		}
		return nil, present, err
	}
	t, err := ParseDeadline(*s)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", key, err)
	}
	return &t, true, nil
}
