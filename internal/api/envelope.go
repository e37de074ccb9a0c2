package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope holds the status fields that most responses share. The payload
// itself sits next to them under a resource-specific key.
type Envelope struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failed reports an explicit success=false.
func (e Envelope) Failed() bool {
	return e.Success != nil && !*e.Success
}

// Reason returns the error text, falling back to the message.
func (e Envelope) Reason() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// Response is a decoded envelope plus the raw body for payload extraction.
type Response struct {
	Envelope
	Raw json.RawMessage
}

// UnmarshalJSON keeps the raw body. Non-object bodies (a bare array) leave
// the envelope empty.
func (r *Response) UnmarshalJSON(data []byte) error {
	r.Raw = append(r.Raw[:0], data...)
	r.Envelope = Envelope{}
	if isObject(data) {
		if err := json.Unmarshal(data, &r.Envelope); err != nil {
			return err
		}
	}
	return nil
}

// Check turns success=false into a FailureError.
func (r *Response) Check(path string) error {
	if r.Failed() {
		return &FailureError{Path: path, Message: r.Reason()}
	}
	return nil
}

// Has reports whether the body is an object carrying a non-null key.
func (r *Response) Has(key string) bool {
	return HasKey(r.Raw, key)
}

// Decode extracts the payload under key into v; see DecodeKey.
func (r *Response) Decode(key string, v interface{}) error {
	return DecodeKey(r.Raw, key, v)
}

// DecodeKey unmarshals raw[key] into v when raw is an object containing
// key, otherwise it unmarshals raw itself. Servers are inconsistent about
// wrapping single records, so callers use this for every payload.
func DecodeKey(raw []byte, key string, v interface{}) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("decoding %q: empty body", key)
	}
	if isObject(raw) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return fmt.Errorf("decoding %q: %w", key, err)
		}
		if inner, ok := fields[key]; ok && !isNull(inner) {
			if err := json.Unmarshal(inner, v); err != nil {
				return fmt.Errorf("decoding %q: %w", key, err)
			}
			return nil
		}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding %q: %w", key, err)
	}
	return nil
}

// HasKey reports whether raw is an object with a non-null value at key.
func HasKey(raw []byte, key string) bool {
	if !isObject(raw) {
		return false
	}
	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil {
		return false
	}
	inner, ok := fields[key]
	return ok && !isNull(inner)
}

func isObject(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{'
}

func isNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
