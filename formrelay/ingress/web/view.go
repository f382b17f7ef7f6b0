package web

import (
	"embed"
	"html/template"

	"github.com/Pandentia/formrelay/formrelay"
	"github.com/Pandentia/formrelay/formrelay/schema"
)

//go:embed templates/*.html
var templatesFS embed.FS

const pageTemplate = "page.html"

func loadTemplates() *template.Template {
	return template.Must(template.New("").ParseFS(templatesFS, "templates/*.html"))
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type fieldView struct {
	Name           string
	Label          string
	Type           string
	Required       bool
	Pattern        string
	PatternMessage string
	Placeholder    string
	Help           string
	Rows           int
	Value          string
	Checked        bool
	Issue          string
	Options        []optionView
}

type pageView struct {
	ID          string
	Title       string
	Description string
	Path        string
	Fields      []fieldView
	SubmitLabel string
	CanSubmit   bool
	State       string
	Message     string
}

func newPageView(form *schema.Form, values formrelay.Fields, issues map[string]string, result formrelay.Result, submitLabel string, canSubmit bool) pageView {
	view := pageView{
		ID:          form.ID,
		Title:       form.Title,
		Description: form.Description,
		Path:        form.Path,
		SubmitLabel: submitLabel,
		CanSubmit:   canSubmit,
		State:       string(result.State),
		Message:     result.Message,
	}

	for _, field := range form.Fields {
		value := values.Value(field.Name)
		fv := fieldView{
			Name:           field.Name,
			Label:          field.Label,
			Type:           string(field.Type),
			Required:       field.Required,
			Pattern:        field.Pattern,
			PatternMessage: field.PatternMessage,
			Placeholder:    field.Placeholder,
			Help:           field.Help,
			Rows:           field.Rows,
			Value:          value,
			Issue:          issues[field.Name],
		}
		if field.Type == schema.FieldTypeCheckbox {
			fv.Checked = schema.IsChecked(value)
		}
		if fv.Label == "" {
			fv.Label = field.Name
		}
		if fv.Rows == 0 {
			fv.Rows = 4
		}
		for _, option := range field.Options {
			fv.Options = append(fv.Options, optionView{
				Value:    option.Value,
				Label:    option.Label,
				Selected: option.Value == value,
			})
		}
		view.Fields = append(view.Fields, fv)
	}
	return view
}
