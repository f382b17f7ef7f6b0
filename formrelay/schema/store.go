package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Pandentia/formrelay/formrelay"
)

// ErrUnknownForm is returned when a form id or path is not registered.
var ErrUnknownForm = errors.New("schema: unknown form")

// reservedPaths are served by the ingress itself.
var reservedPaths = []string{"/api", "/metrics", "/live", "/ready"}

// Store holds the registered forms in registration order.
type Store struct {
	forms []*Form
	byID  map[string]*Form
}

func (s *Store) add(form Form, origin string) error {
	if err := prepare(&form); err != nil {
		return fmt.Errorf("schema: %s: %w", origin, err)
	}
	if _, exists := s.byID[form.ID]; exists {
		return fmt.Errorf("schema: duplicate form %q (file %s)", form.ID, origin)
	}
	for _, other := range s.forms {
		if strings.EqualFold(other.Path, form.Path) {
			return fmt.Errorf("schema: form %q reuses path %s of form %q (file %s)", form.ID, form.Path, other.ID, origin)
		}
	}
	f := form
	s.forms = append(s.forms, &f)
	s.byID[f.ID] = &f
	return nil
}

// Form returns the form registered under id.
func (s *Store) Form(id string) (*Form, error) {
	if s != nil {
		if form, ok := s.byID[id]; ok {
			return form, nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownForm, id)
}

// ByPath returns the form served at path. Matching ignores case and a
// trailing slash.
func (s *Store) ByPath(path string) (*Form, error) {
	clean := strings.TrimSuffix(path, "/")
	if s != nil {
		for _, form := range s.forms {
			if strings.EqualFold(form.Path, clean) {
				return form, nil
			}
		}
	}
	return nil, fmt.Errorf("%w at %s", ErrUnknownForm, path)
}

// Forms lists the registered forms in registration order.
func (s *Store) Forms() []*Form {
	if s == nil {
		return nil
	}
	out := make([]*Form, len(s.forms))
	copy(out, s.forms)
	return out
}

func prepare(form *Form) error {
	form.ID = strings.TrimSpace(form.ID)
	if form.ID == "" {
		return errors.New("form id is required")
	}
	if form.Path == "" {
		form.Path = "/" + form.ID
	}
	if !strings.HasPrefix(form.Path, "/") || form.Path == "/" {
		return fmt.Errorf("form %q: path %q must start with / and name a page", form.ID, form.Path)
	}
	form.Path = strings.TrimSuffix(form.Path, "/")
	for _, reserved := range reservedPaths {
		if strings.EqualFold(form.Path, reserved) || strings.HasPrefix(strings.ToLower(form.Path), reserved+"/") {
			return fmt.Errorf("form %q: path %s is reserved", form.ID, form.Path)
		}
	}
	if form.SuccessMessage == "" {
		return fmt.Errorf("form %q: success_message is required", form.ID)
	}
	if len(form.Fields) == 0 {
		return fmt.Errorf("form %q declares no fields", form.ID)
	}

	seen := make(map[string]bool, len(form.Fields))
	for i := range form.Fields {
		field := &form.Fields[i]
		field.Name = strings.TrimSpace(field.Name)
		if field.Name == "" {
			return fmt.Errorf("form %q: field %d has no name", form.ID, i)
		}
		if formrelay.IsReserved(field.Name) {
			return fmt.Errorf("form %q: field name %q is reserved", form.ID, field.Name)
		}
		if seen[field.Name] {
			return fmt.Errorf("form %q: duplicate field %q", form.ID, field.Name)
		}
		seen[field.Name] = true

		if field.Type == "" {
			field.Type = FieldTypeText
		}
		if !field.Type.valid() {
			return fmt.Errorf("form %q: field %q has unknown type %q", form.ID, field.Name, field.Type)
		}
		if field.Type == FieldTypeSelect && len(field.Options) == 0 {
			return fmt.Errorf("form %q: select field %q has no options", form.ID, field.Name)
		}
		if field.Pattern != "" {
			re, err := compilePattern(field.Pattern)
			if err != nil {
				return fmt.Errorf("form %q: field %q: %w", form.ID, field.Name, err)
			}
			field.pattern = re
		}
	}
	return nil
}
