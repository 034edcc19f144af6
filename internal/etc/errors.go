package etc

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Every error returned by the Calculator wraps exactly one of these.
var (
	// ErrConfiguration is returned for invalid or unsupported request
	// parameters.
	ErrConfiguration = errors.New("configuration error")

	// ErrNetwork is returned when the sky background cannot be retrieved.
	ErrNetwork = errors.New("network error")

	// ErrNumerical is returned when no positive source flux reaches the
	// requested S/N.
	ErrNumerical = errors.New("numerical error")
)

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func numericalErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNumerical, fmt.Sprintf(format, args...))
}

// validationError flattens validator errors into one ErrConfiguration.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldErrorMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(msgs, "; "))
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "finite":
		return fmt.Sprintf("%s must be a finite number", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", field, fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s, got %v", field, fe.Param(), fe.Value())
	case "lt":
		return fmt.Sprintf("%s must be less than %s, got %v", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s, got %v", field, fe.Param(), fe.Value())
	case "excluded_with":
		return fmt.Sprintf("%s cannot be combined with %s", field, fe.Param())
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", field, fe.Param())
	default:
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s %q failed validation: %s", field, fe.Value(), fe.Tag())
		}
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
