package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

var jsonNull = []byte("null")

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodePromptRequest parses and validates the request body. Field names are
// matched exactly and the body must hold a single JSON value. A non-nil error
// means the body could not be read (e.g. it exceeded the size cap); otherwise
// the returned issues are ready to be sent back with a 422.
func decodePromptRequest(body io.Reader) (*PromptRequest, []ValidationIssue, error) {
	dec := json.NewDecoder(body)
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		if isReadError(err) {
			return nil, nil, err
		}
		return nil, []ValidationIssue{decodeIssue(err)}, nil
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if isReadError(err) {
			return nil, nil, err
		}
		return nil, []ValidationIssue{{Type: "json_invalid", Loc: []any{"body", dec.InputOffset()}, Msg: "JSON decode error"}}, nil
	}

	var req PromptRequest
	var issues []ValidationIssue
	if raw, ok := fields["prompt"]; ok {
		var prompt string
		if bytes.Equal(bytes.TrimSpace(raw), jsonNull) || json.Unmarshal(raw, &prompt) != nil {
			issues = append(issues, typeIssue("prompt", "string"))
		} else {
			req.Prompt = &prompt
		}
	}
	if raw, ok := fields["max_tokens"]; ok {
		var maxTokens int
		if bytes.Equal(bytes.TrimSpace(raw), jsonNull) || json.Unmarshal(raw, &maxTokens) != nil {
			issues = append(issues, typeIssue("max_tokens", "int"))
		} else {
			req.MaxTokens = &maxTokens
		}
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, []ValidationIssue{{Type: "value_error", Loc: []any{"body"}, Msg: err.Error()}}, nil
		}
		for _, fe := range verrs {
			// A present but mistyped prompt already has its own issue.
			if fe.Tag() == "required" && fields != nil && fields[fe.Field()] != nil {
				continue
			}
			issues = append(issues, fieldIssue(fe))
		}
	}
	if len(issues) > 0 {
		return nil, issues, nil
	}
	return &req, nil, nil
}

// isReadError reports whether err came from the body reader rather than
// from the JSON itself.
func isReadError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return false
	}
	return !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr)
}

func decodeIssue(err error) ValidationIssue {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return ValidationIssue{Type: "missing", Loc: []any{"body"}, Msg: "Field required"}
	case errors.As(err, &syntaxErr):
		return ValidationIssue{Type: "json_invalid", Loc: []any{"body", syntaxErr.Offset}, Msg: "JSON decode error"}
	case errors.As(err, &typeErr):
		return ValidationIssue{
			Type: "model_attributes_type",
			Loc:  []any{"body"},
			Msg:  "Input should be a valid dictionary or object to extract fields from",
		}
	default:
		return ValidationIssue{Type: "json_invalid", Loc: []any{"body"}, Msg: "JSON decode error"}
	}
}

func typeIssue(field, label string) ValidationIssue {
	return ValidationIssue{
		Type: label + "_type",
		Loc:  []any{"body", field},
		Msg:  fmt.Sprintf("Input should be a valid %s", label),
	}
}

func fieldIssue(fe validator.FieldError) ValidationIssue {
	loc := []any{"body", fe.Field()}
	switch fe.Tag() {
	case "required":
		return ValidationIssue{Type: "missing", Loc: loc, Msg: "Field required"}
	case "gte":
		return ValidationIssue{
			Type: "greater_than_equal",
			Loc:  loc,
			Msg:  fmt.Sprintf("Input should be greater than or equal to %s", fe.Param()),
		}
	default:
		return ValidationIssue{Type: "value_error", Loc: loc, Msg: fe.Error()}
	}
}
