package validation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
)

// maxBodyBytes caps request bodies decoded by DecodeAndValidate.
const maxBodyBytes = 1 << 20

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

func validate() *validator.Validate {
	structValidatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their JSON name.
		structValidator.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return structValidator
}

// Validator validates request data
type Validator struct {
	errors *apperrors.ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: apperrors.NewValidationErrors(),
	}
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return v.errors.HasErrors()
}

// Errors returns the validation errors
func (v *Validator) Errors() *apperrors.ValidationErrors {
	return v.errors
}

// Required validates that a string is not empty
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors.Add(field, "Ce champ est obligatoire")
	}
	return v
}

// MaxLength validates maximum string length
func (v *Validator) MaxLength(field, value string, max int) *Validator {
	if len(value) > max {
		v.errors.Add(field, "Doit contenir "+strconv.Itoa(max)+" caractères au maximum")
	}
	return v
}

// Min validates minimum integer value
func (v *Validator) Min(field string, value, min int) *Validator {
	if value < min {
		v.errors.Add(field, "Doit être supérieur ou égal à "+strconv.Itoa(min))
	}
	return v
}

// OneOf validates value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" {
		return v // Empty is handled by Required
	}

	for _, a := range allowed {
		if value == a {
			return v
		}
	}

	v.errors.Add(field, "Doit être l'une des valeurs : "+strings.Join(allowed, ", "))
	return v
}

// Custom adds a custom validation
func (v *Validator) Custom(field string, valid bool, message string) *Validator {
	if !valid {
		v.errors.Add(field, message)
	}
	return v
}

// Struct runs the `validate` struct tags of s and converts failures into
// field errors.
func (v *Validator) Struct(s any) *Validator {
	err := validate().Struct(s)
	if err == nil {
		return v
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.errors.Add("body", "Requête invalide")
		return v
	}
	for _, fe := range fieldErrs {
		v.errors.Add(fieldName(fe), tagMessage(fe))
	}
	return v
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Ce champ est obligatoire"
	case "email":
		return "Format d'email invalide"
	case "max":
		return "Doit contenir " + fe.Param() + " caractères au maximum"
	case "min", "gte":
		return "Doit être supérieur ou égal à " + fe.Param()
	case "gt":
		return "Doit être supérieur à " + fe.Param()
	case "lte":
		return "Doit être inférieur ou égal à " + fe.Param()
	case "oneof":
		return "Doit être l'une des valeurs : " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "Valeur invalide"
	}
}

// Decode decodes the JSON request body into T without validating it. An
// empty body leaves T at its zero value.
func Decode[T any](r *http.Request) (*T, error) {
	var req T

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperrors.NewBadRequestError(err, "Corps de requête invalide")
	}

	return &req, nil
}

// DecodeAndValidate decodes the JSON request body into T and checks its
// `validate` tags.
func DecodeAndValidate[T any](r *http.Request) (*T, error) {
	var req T

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return nil, apperrors.NewBadRequestError(err, "Corps de requête invalide")
	}

	if v := NewValidator().Struct(&req); v.HasErrors() {
		return nil, v.Errors()
	}

	return &req, nil
}

// ParseIntQueryParam safely parses an integer query parameter
func ParseIntQueryParam(r *http.Request, key string, defaultValue int) int {
	valueStr := r.URL.Query().Get(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil || value < 0 {
		return defaultValue
	}

	return value
}

// ParseStringQueryParam returns the trimmed query parameter, or "" when absent.
func ParseStringQueryParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// ParseID parses a positive integer identifier taken from the URL.
func ParseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		v := NewValidator()
		v.Custom(field, false, "Identifiant invalide")
		return 0, v.Errors()
	}
	return id, nil
}
