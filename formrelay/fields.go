package formrelay

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Field is a single named form value.
type Field struct {
	Name  string
	Value string
}

// Fields is an ordered field mapping. It encodes to a flat JSON object
// whose keys keep insertion order.
type Fields []Field

// Set replaces the value of name in place, or appends it when absent.
func (f *Fields) Set(name, value string) {
	for i := range *f {
		if (*f)[i].Name == name {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, Field{Name: name, Value: value})
}

// Get returns the value stored under name.
func (f Fields) Get(name string) (string, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return "", false
}

// Value returns the value stored under name, or an empty string.
func (f Fields) Value(name string) string {
	v, _ := f.Get(name)
	return v
}

// Names lists the field names in order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for _, field := range f {
		names = append(names, field.Name)
	}
	return names
}

// Clone returns an independent copy of f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	copy(out, f)
	return out
}

// Without returns a copy of f with the named fields removed.
func (f Fields) Without(names ...string) Fields {
	out := make(Fields, 0, len(f))
	for _, field := range f {
		skip := false
		for _, name := range names {
			if field.Name == name {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, field)
		}
	}
	return out
}

// Map returns the fields as an unordered map.
func (f Fields) Map() map[string]string {
	out := make(map[string]string, len(f))
	for _, field := range f {
		out[field.Name] = field.Value
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
