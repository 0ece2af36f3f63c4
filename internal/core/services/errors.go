package services

import (
	"errors"

	"aadhaar-seva/internal/pkg/validator"

	"gorm.io/gorm"
)

// Shared errors
var (
	ErrForbidden = errors.New("you don't have permission to access this resource")
)

// ValidationError is a rejected input; Message is safe to show the caller
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// validateInput runs struct validation and wraps the first failure
func validateInput(in interface{}) error {
	if err := validator.Struct(in); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
