package domain

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Form steps of the two-step editor.
const (
	StepIdentity = 1
	StepMixture  = 2
)

// RequiredTotal is the value the response-length percentages must add up to.
const RequiredTotal = 100

var validate = newValidator()

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

// ValidationError lists the fields of a form that failed validation,
// keyed by JSON field path.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid assistant form: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks both steps of the form. It returns nil or a *ValidationError.
func (f AssistantForm) Validate() error {
	fields := make(map[string]string)
	f.collectIdentity(fields)
	f.collectMixture(fields)
	return toError(fields)
}

// ValidateStep checks only the fields belonging to one step of the editor.
func (f AssistantForm) ValidateStep(step int) error {
	fields := make(map[string]string)
	switch step {
	case StepIdentity:
		f.collectIdentity(fields)
	case StepMixture:
		f.collectMixture(fields)
	default:
		return fmt.Errorf("unknown form step %d", step)
	}
	return toError(fields)
}

// Valid is a convenience for callers that only need a yes or no.
func (f AssistantForm) Valid() bool {
	return f.Validate() == nil
}

func (f AssistantForm) collectIdentity(fields map[string]string) {
	err := validate.StructPartial(f, "Name", "Language", "Tone")
	collect(err, "", fields)
}

func (f AssistantForm) collectMixture(fields map[string]string) {
	err := validate.Struct(f.ResponseLength)
	collect(err, "responseLength.", fields)
	if total := f.ResponseLength.Total(); total != RequiredTotal {
		fields["responseLength"] = fmt.Sprintf("percentages must add up to %d, got %d", RequiredTotal, total)
	}
}

func collect(err error, prefix string, fields map[string]string) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields[strings.TrimSuffix(prefix, ".")] = err.Error()
		return
	}
	for _, fe := range verrs {
		fields[prefix+fe.Field()] = message(fe)
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

func toError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
