// Package schema describes the forms the site renders and the declarative
// rules their fields are validated against before a submission is built.
package schema

import (
	"regexp"

	"github.com/Pandentia/formrelay/formrelay"
	"gopkg.in/yaml.v3"
)

// FieldType is the input kind of a form field.
type FieldType string

// Supported field types.
const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypeTel      FieldType = "tel"
	FieldTypeNumber   FieldType = "number"
	FieldTypeURL      FieldType = "url"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
)

func (t FieldType) valid() bool {
	switch t {
	case FieldTypeText, FieldTypeEmail, FieldTypeTel, FieldTypeNumber,
		FieldTypeURL, FieldTypeTextarea, FieldTypeSelect, FieldTypeCheckbox:
		return true
	}
	return false
}

// Option is one choice of a select field.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// UnmarshalYAML accepts either a bare scalar or a value/label mapping.
func (o *Option) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		o.Value = node.Value
		o.Label = node.Value
		return nil
	}
	type plain Option
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*o = Option(p)
	if o.Label == "" {
		o.Label = o.Value
	}
	return nil
}

// Field describes a single input of a form.
type Field struct {
	Name           string    `yaml:"name" json:"name"`
	Label          string    `yaml:"label" json:"label,omitempty"`
	Type           FieldType `yaml:"type" json:"type"`
	Required       bool      `yaml:"required" json:"required"`
	Pattern        string    `yaml:"pattern" json:"pattern,omitempty"`
	PatternMessage string    `yaml:"pattern_message" json:"patternMessage,omitempty"`
	Options        []Option  `yaml:"options" json:"options,omitempty"`
	Placeholder    string    `yaml:"placeholder" json:"placeholder,omitempty"`
	Help           string    `yaml:"help" json:"help,omitempty"`
	Rows           int       `yaml:"rows" json:"rows,omitempty"`

	pattern *regexp.Regexp
}

// HasOption reports whether value is one of the field's options.
func (f Field) HasOption(value string) bool {
	for _, option := range f.Options {
		if option.Value == value {
			return true
		}
	}
	return false
}

// Form describes one page form: its copy, its relay metadata and its fields.
type Form struct {
	ID             string  `yaml:"id" json:"id"`
	Path           string  `yaml:"path" json:"path"`
	Title          string  `yaml:"title" json:"title"`
	Description    string  `yaml:"description" json:"description,omitempty"`
	Source         string  `yaml:"source" json:"source"`
	Subject        string  `yaml:"subject" json:"subject"`
	SubmitLabel    string  `yaml:"submit_label" json:"submitLabel"`
	PendingLabel   string  `yaml:"pending_label" json:"pendingLabel"`
	SuccessMessage string  `yaml:"success_message" json:"successMessage"`
	Fields         []Field `yaml:"fields" json:"fields"`
}

// Metadata returns the fixed relay fields of the form.
func (f *Form) Metadata() formrelay.Metadata {
	return formrelay.Metadata{Source: f.Source, Subject: f.Subject}
}

// Field looks up a field by name.
func (f *Form) Field(name string) (Field, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// Collect snapshots values into the form's field order. Fields absent from
// values are collected as empty strings; names the form does not declare
// are dropped.
func (f *Form) Collect(values map[string]string) formrelay.Fields {
	out := make(formrelay.Fields, 0, len(f.Fields))
	for _, field := range f.Fields {
		out = append(out, formrelay.Field{Name: field.Name, Value: values[field.Name]})
	}
	return out
}

// Empty returns the form's fields with every value cleared.
func (f *Form) Empty() formrelay.Fields {
	return f.Collect(nil)
}
