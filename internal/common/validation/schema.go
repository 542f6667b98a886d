package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Summary joins the errors into one line suitable for an API error body.
func (r *ValidationResult) Summary() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}

// Schema is a compiled JSON schema, safe for concurrent use.
type Schema struct {
	name   string
	source string

	once     sync.Once
	compiled *gojsonschema.Schema
	err      error
}

// NewSchema registers a schema document; it is compiled on first use.
func NewSchema(name, source string) *Schema {
	return &Schema{name: name, source: source}
}

func (s *Schema) load() (*gojsonschema.Schema, error) {
	s.once.Do(func() {
		s.compiled, s.err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(s.source))
		if s.err != nil {
			s.err = fmt.Errorf("compile %s schema: %w", s.name, s.err)
		}
	})
	return s.compiled, s.err
}

// ValidateBytes validates a raw JSON document. Malformed JSON is reported as
// a validation failure rather than an error.
func (s *Schema) ValidateBytes(raw []byte) (*ValidationResult, error) {
	if !json.Valid(raw) {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: "request body is not valid JSON",
				Code:    "INVALID_JSON",
			}},
		}, nil
	}
	return s.validate(gojsonschema.NewBytesLoader(raw))
}

// ValidateInput validates an already decoded document.
func (s *Schema) ValidateInput(input interface{}) (*ValidationResult, error) {
	return s.validate(gojsonschema.NewGoLoader(input))
}

func (s *Schema) validate(document gojsonschema.JSONLoader) (*ValidationResult, error) {
	schema, err := s.load()
	if err != nil {
		return nil, err
	}

	result, err := schema.Validate(document)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// ConversationSchema describes the body of a room recommendation request.
var ConversationSchema = NewSchema("conversation", `{
  "type": "object",
  "properties": {
    "message": {"type": "string", "minLength": 1, "pattern": "\\S"},
    "image":   {"type": "string", "minLength": 1, "pattern": "\\S"}
  },
  "required": ["message", "image"]
}`)

// SearchSchema describes a catalog search request.
var SearchSchema = NewSchema("search", `{
  "type": "object",
  "properties": {
    "query": {"type": "string", "minLength": 1}
  },
  "required": ["query"]
}`)

// RecommendSchema describes a recommendation request.
var RecommendSchema = NewSchema("recommend", `{
  "type": "object",
  "properties": {
    "user_id": {"type": "string", "minLength": 1}
  },
  "required": ["user_id"]
}`)

// CartAddSchema describes an add-to-cart request.
var CartAddSchema = NewSchema("cart_add", `{
  "type": "object",
  "properties": {
    "user_id":    {"type": "string", "minLength": 1},
    "product_id": {"type": "string", "minLength": 1},
    "quantity":   {"type": "integer", "minimum": 1, "maximum": 1000}
  },
  "required": ["user_id", "product_id"]
}`)
