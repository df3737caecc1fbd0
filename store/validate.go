package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError lists every rule a User broke. It matches ErrInvalidUser.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidUser, strings.Join(e.Reasons, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidUser
}

// validateUser reports malformed registration input as ErrInvalidUser.
func validateUser(u User) error {
	err := validate.Struct(u)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}

	reasons := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		reasons = append(reasons, describeFieldError(fe))
	}
	return &ValidationError{Reasons: reasons}
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch field {
	case "UserID":
		field = "username"
	case "Name":
		field = "name"
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "alphanum":
		return fmt.Sprintf("%s may only contain letters and digits", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q check", field, fe.Tag())
	}
}
