package formrelay

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// RawValue keeps a JSON value undecoded so loosely typed relay responses
// can be interpreted after the fact.
type RawValue json.RawMessage

// UnmarshalJSON implements json.Unmarshaler.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	*v = append((*v)[:0], data...)
	return nil
}

// Truthy reports whether the value is truthy the way a browser script
// would see it: false, null, 0, "" and absent values are falsy.
func (v RawValue) Truthy() bool {
	raw := bytes.TrimSpace(v)
	if len(raw) == 0 {
		return false
	}
	switch raw[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		return len(raw) > 2
	}
	n, err := strconv.ParseFloat(string(raw), 64)
	return err == nil && n != 0
}

// String returns the value when it is a JSON string, or "".
func (v RawValue) String() string {
	raw := bytes.TrimSpace(v)
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
