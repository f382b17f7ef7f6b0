package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Pandentia/formrelay/formrelay"
)

// Issue messages, worded like the browser's native constraint messages.
const (
	MessageRequired = "Please fill out this field."
	MessageChecked  = "Please check this box if you want to proceed."
	MessageSelect   = "Please select an item in the list."
	MessageEmail    = "Please enter a valid email address."
	MessageURL      = "Please enter a URL."
	MessageNumber   = "Please enter a number."
	MessagePattern  = "Please match the requested format."
)

var validate = validator.New()

// Issue is a single failed field constraint.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field of a form that failed its constraints.
type ValidationError struct {
	Form   string
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return fmt.Sprintf("schema: form %s failed validation: %s", e.Form, strings.Join(parts, "; "))
}

// Messages indexes the issue messages by field name.
func (e *ValidationError) Messages() map[string]string {
	out := make(map[string]string, len(e.Issues))
	for _, issue := range e.Issues {
		out[issue.Field] = issue.Message
	}
	return out
}

// Validate checks fields against the form's declared constraints. It returns
// nil or a *ValidationError with one issue per failing field, in field order.
func (f *Form) Validate(fields formrelay.Fields) error {
	var issues []Issue
	for _, field := range f.Fields {
		if msg := field.check(fields.Value(field.Name)); msg != "" {
			issues = append(issues, Issue{Field: field.Name, Message: msg})
		}
	}
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Form: f.ID, Issues: issues}
}

// IsChecked reports whether value is what a ticked checkbox submits.
func IsChecked(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func (f Field) check(value string) string {
	if f.Type == FieldTypeCheckbox {
		if f.Required && !IsChecked(value) {
			return MessageChecked
		}
		return ""
	}

	if strings.TrimSpace(value) == "" {
		if !f.Required {
			return ""
		}
		if f.Type == FieldTypeSelect {
			return MessageSelect
		}
		return MessageRequired
	}

	switch f.Type {
	case FieldTypeEmail:
		if validate.Var(value, "email") != nil {
			return MessageEmail
		}
	case FieldTypeURL:
		if validate.Var(value, "url") != nil {
			return MessageURL
		}
	case FieldTypeNumber:
		if validate.Var(value, "numeric") != nil {
			return MessageNumber
		}
	case FieldTypeSelect:
		if !f.HasOption(value) {
			return MessageSelect
		}
	}

	if f.Pattern != "" {
		re, err := f.matcher()
		if err != nil || !re.MatchString(value) {
			if f.PatternMessage != "" {
				return f.PatternMessage
			}
			return MessagePattern
		}
	}
	return ""
}

// matcher returns the anchored pattern; like the HTML pattern attribute it
// must match the whole value.
func (f Field) matcher() (*regexp.Regexp, error) {
	if f.pattern != nil {
		return f.pattern, nil
	}
	return compilePattern(f.Pattern)
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")$")
}
