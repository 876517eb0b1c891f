package core

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation failures fall into two classes: plain user-correctable input
// errors, and injection attempts (a structured value submitted where a scalar
// was required). Callers distinguish them with errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInjectionAttempt = errors.New("injection attempt detected")
)

// emailValidator backs the email-grammar check. A validator instance is safe
// for concurrent use, so one serves all schemas.
var emailValidator = validator.New()

// FieldKind selects the grammar applied to a scalar field.
type FieldKind int

const (
	KindString FieldKind = iota
	KindEmail
)

// Field declares the constraints on a single schema field.
type Field struct {
	Kind      FieldKind
	MaxLength int
	Required  bool
}

// Schema is a named set of field constraints applied to untrusted input before
// it may reach a store query. Validation is deterministic and has no side
// effects.
type Schema struct {
	Name   string
	Fields map[string]Field
}

// Value is one submitted field: either a plain scalar string or a structured
// value the client smuggled in through bracket-syntax parameters
// (user[$ne]=x) or repeated keys. Structured values are never forwarded to a
// store; they exist only so validation can reject them explicitly.
type Value struct {
	Scalar     string
	Structured map[string]string
	set        bool
}

// ScalarValue wraps a plain string for validation.
func ScalarValue(s string) Value {
	return Value{Scalar: s, set: true}
}

// IsScalar reports whether the value is a plain string.
func (v Value) IsScalar() bool {
	return v.set && v.Structured == nil
}

// Validate checks the candidate values against the schema. It returns nil for
// valid input, an ErrInjectionAttempt-wrapped error for any non-scalar value,
// and an ErrInvalidInput-wrapped error for missing/over-long/malformed fields.
// Unknown fields in values are ignored; the schema decides what is read.
func (s Schema) Validate(values map[string]Value) error {
	for name, field := range s.Fields {
		v, ok := values[name]
		if !ok || !v.set {
			if field.Required {
				return fmt.Errorf("%w: %s: missing required field %q", ErrInvalidInput, s.Name, name)
			}
			continue
		}

		// A structured value is rejected before any other rule runs. This is
		// the primary defense against query-operator injection.
		if !v.IsScalar() {
			return fmt.Errorf("%w: %s: field %q is not a scalar", ErrInjectionAttempt, s.Name, name)
		}

		if field.Required && v.Scalar == "" {
			return fmt.Errorf("%w: %s: field %q must not be empty", ErrInvalidInput, s.Name, name)
		}
		if field.MaxLength > 0 && len(v.Scalar) > field.MaxLength {
			return fmt.Errorf("%w: %s: field %q exceeds %d characters", ErrInvalidInput, s.Name, name, field.MaxLength)
		}
		if field.Kind == KindEmail && v.Scalar != "" {
			if err := emailValidator.Var(v.Scalar, "email"); err != nil {
				return fmt.Errorf("%w: %s: field %q is not a valid email", ErrInvalidInput, s.Name, name)
			}
		}
	}
	return nil
}

// ParseFormValues decodes url.Values into per-field Values, surfacing
// bracket-syntax keys (user[$ne]=x) and repeated keys as structured values so
// Validate can reject them. Express-style extended decoding turns such keys
// into objects server-side; we keep the shape visible instead of flattening it.
func ParseFormValues(raw url.Values) map[string]Value {
	out := make(map[string]Value, len(raw))
	for key, vals := range raw {
		field, sub, bracketed := splitBracketKey(key)
		switch {
		case bracketed:
			v := out[field]
			if v.Structured == nil {
				v.Structured = make(map[string]string, 1)
			}
			v.set = true
			if len(vals) > 0 {
				v.Structured[sub] = vals[0]
			}
			out[field] = v
		case len(vals) > 1:
			// Repeated keys decode to an array; treat as structured.
			v := out[field]
			if v.Structured == nil {
				v.Structured = make(map[string]string, len(vals))
			}
			v.set = true
			for i, item := range vals {
				v.Structured[fmt.Sprintf("%d", i)] = item
			}
			out[field] = v
		default:
			v := out[field]
			v.set = true
			if v.Structured == nil && len(vals) == 1 {
				v.Scalar = vals[0]
			}
			out[field] = v
		}
	}
	return out
}

// splitBracketKey splits "user[$ne]" into ("user", "$ne", true); plain keys
// return (key, "", false).
func splitBracketKey(key string) (field, sub string, ok bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, "", false
	}
	return key[:open], key[open+1 : len(key)-1], true
}

// Schemas for the two auth flows and the diagnostic lookup. The password cap
// of 20 characters is inherited from the reference behavior.
var (
	SignupSchema = Schema{
		Name: "signup",
		Fields: map[string]Field{
			"name":     {Kind: KindString, MaxLength: 50, Required: true},
			"email":    {Kind: KindEmail, Required: true},
			"password": {Kind: KindString, MaxLength: 20, Required: true},
		},
	}

	LoginSchema = Schema{
		Name: "login",
		Fields: map[string]Field{
			"email":    {Kind: KindEmail, Required: true},
			"password": {Kind: KindString, MaxLength: 20, Required: true},
		},
	}

	UsernameQuerySchema = Schema{
		Name: "username-query",
		Fields: map[string]Field{
			"user": {Kind: KindString, MaxLength: 20, Required: true},
		},
	}
)
