package service

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/assignment-tracker-api/internal/models"
	appErrors "github.com/noah-isme/assignment-tracker-api/pkg/errors"
)

// NewValidator returns a validator with the domain tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		status, ok := fl.Field().Interface().(models.Status)
		return ok && status.Valid()
	})
	return v
}

// FieldError is a single validation failure returned to clients.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func validationError(err error, message string) *appErrors.Error {
	var details []FieldError
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range errs {
			details = append(details, FieldError{Field: fieldName(fe.Namespace()), Rule: fe.Tag()})
		}
	}
	appErr := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	if len(details) > 0 {
		appErr.Details = details
	}
	return appErr
}

func fieldName(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		namespace = namespace[idx+1:]
	}
	return namespace
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	return nil
}
