package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report document field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError is a single failed path.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError collects every failed path of one document, rendered the
// way clients of this API have always seen it:
//
//	Project validation failed: name: Path `name` is required., budget: ...
type ValidationError struct {
	Model  string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Path == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Path+": "+f.Message)
	}
	return e.Model + " validation failed: " + strings.Join(parts, ", ")
}

// Validate checks the struct tags of an input or patch for the named model.
func Validate(model string, in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Model: model}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Path: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "min":
		return fmt.Sprintf("Path `%s` is required.", fe.Field())
	default:
		return fmt.Sprintf("Validator failed for path `%s` with value `%v`", fe.Field(), fe.Value())
	}
}

// DecodeError turns a JSON decoding failure of a model payload into a
// ValidationError when it is a type or cast problem. Syntax errors pass through.
func DecodeError(model string, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		cast := &CastError{Kind: kindName(typeErr.Type), Value: "of type " + typeErr.Value, Path: typeErr.Field}
		return &ValidationError{Model: model, Fields: []FieldError{{Path: typeErr.Field, Message: cast.Error()}}}
	}
	var castErr *CastError
	if errors.As(err, &castErr) {
		return &ValidationError{Model: model, Fields: []FieldError{{Path: castErr.Path, Message: castErr.Error()}}}
	}
	return err
}

func kindName(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "String"
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "Number"
	default:
		return t.Name()
	}
}
