// Package form describes entity forms as field lists. One description drives
// rendering, edit prepopulation and parsing the submitted strings into an API
// payload.
package form

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type Kind int

const (
	Text Kind = iota
	TextArea
	Number
	Integer
	Date
	Select
)

// InputType is the HTML input type for k.
func (k Kind) InputType() string {
	switch k {
	case Number, Integer:
		return "number"
	case Date:
		return "date"
	}
	return "text"
}

const DateLayout = "2006-01-02"

type Option struct {
	Value string
	Label string
}

// Field describes one form control. Get renders the field of an existing
// entity for editing; it may be nil for create-only forms.
type Field[T any] struct {
	Name        string
	Label       string
	Kind        Kind
	Required    bool
	Step        string
	Placeholder string
	Rows        int
	Get         func(T) string
}

type Form[T any] struct {
	Fields []Field[T]
}

// Values holds submitted or prepopulated strings by field name.
type Values map[string]string

func (f Form[T]) Blank() Values {
	v := make(Values, len(f.Fields))
	for _, fd := range f.Fields {
		v[fd.Name] = ""
	}
	return v
}

// From stringifies e for an edit form.
func (f Form[T]) From(e T) Values {
	v := f.Blank()
	for _, fd := range f.Fields {
		if fd.Get != nil {
			v[fd.Name] = fd.Get(e)
		}
	}
	return v
}

// Read collects the form's fields from a parsed request.
func (f Form[T]) Read(r *http.Request) Values {
	v := make(Values, len(f.Fields))
	for _, fd := range f.Fields {
		v[fd.Name] = strings.TrimSpace(r.PostFormValue(fd.Name))
	}
	return v
}

// FieldError reports a value that could not be parsed.
type FieldError struct {
	Field string
	Label string
	Msg   string
}

func (e *FieldError) Error() string { return e.Label + ": " + e.Msg }

// Parse converts v into a JSON-ready payload. Empty optional fields are left
// out so the API sees them as absent rather than empty.
func (f Form[T]) Parse(v Values) (map[string]any, error) {
	out := make(map[string]any, len(f.Fields))
	for _, fd := range f.Fields {
		raw := strings.TrimSpace(v[fd.Name])
		if raw == "" {
			if fd.Required {
				return nil, &FieldError{Field: fd.Name, Label: fd.Label, Msg: "is required"}
			}
			continue
		}

		switch fd.Kind {
		case Number:
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
				return nil, &FieldError{Field: fd.Name, Label: fd.Label, Msg: "must be a number"}
			}
			out[fd.Name] = n
		case Integer:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, &FieldError{Field: fd.Name, Label: fd.Label, Msg: "must be a whole number"}
			}
			out[fd.Name] = n
		case Date:
			d, err := time.Parse(DateLayout, raw)
			if err != nil {
				return nil, &FieldError{Field: fd.Name, Label: fd.Label, Msg: "must be a date (YYYY-MM-DD)"}
			}
			out[fd.Name] = d.UTC().Format(time.RFC3339)
		default:
			out[fd.Name] = raw
		}
	}
	return out, nil
}

// Decode parses v into dst, an API input struct with matching JSON tags.
func (f Form[T]) Decode(v Values, dst any) error {
	payload, err := f.Parse(v)
	if err != nil {
		return err
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode form: %w", err)
	}
	return nil
}

// Input is a field ready for the template: its description, current value
// and select options.
type Input struct {
	Name        string
	Label       string
	Type        string
	Kind        Kind
	Required    bool
	Step        string
	Placeholder string
	Rows        int
	Value       string
	Options     []Option
}

func (i Input) IsTextArea() bool { return i.Kind == TextArea }
func (i Input) IsSelect() bool   { return i.Kind == Select }

// Inputs pairs every field with its value in v. options supplies the choices
// of Select fields by name.
func (f Form[T]) Inputs(v Values, options map[string][]Option) []Input {
	out := make([]Input, 0, len(f.Fields))
	for _, fd := range f.Fields {
		out = append(out, Input{
			Name:        fd.Name,
			Label:       fd.Label,
			Type:        fd.Kind.InputType(),
			Kind:        fd.Kind,
			Required:    fd.Required,
			Step:        fd.Step,
			Placeholder: fd.Placeholder,
			Rows:        fd.Rows,
			Value:       v[fd.Name],
			Options:     options[fd.Name],
		})
	}
	return out
}

// Float formats an optional number for a form value.
func Float(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func String(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
