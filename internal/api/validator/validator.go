package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"bizdesk/internal/models"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

var customTags = map[string]playgroundvalidator.Func{
	"module":         validateModule,
	"invoice_status": validateInvoiceStatus,
	"task_status":    validateTaskStatus,
	"account_kind":   validateAccountKind,
	"month":          validateMonth,
}

// NewValidator creates a new validator instance
func NewValidator() (*CustomValidator, error) {
	v := playgroundvalidator.New()

	// Report fields by their json names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	for tag, fn := range customTags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("register %s validation: %w", tag, err)
		}
	}

	return &CustomValidator{validator: v}, nil
}

var _ echo.Validator = (*CustomValidator)(nil)

func validateModule(fl playgroundvalidator.FieldLevel) bool {
	if m, ok := fl.Field().Interface().(models.Module); ok {
		return m != models.ModuleUnknown
	}
	_, err := models.ParseModule(fl.Field().String())
	return err == nil
}

func validateInvoiceStatus(fl playgroundvalidator.FieldLevel) bool {
	switch models.InvoiceStatus(fl.Field().String()) {
	case models.InvoiceStatusDraft, models.InvoiceStatusSent, models.InvoiceStatusPaid, models.InvoiceStatusCancelled:
		return true
	}
	return false
}

func validateTaskStatus(fl playgroundvalidator.FieldLevel) bool {
	switch models.TaskStatus(fl.Field().String()) {
	case models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusDone:
		return true
	}
	return false
}

func validateAccountKind(fl playgroundvalidator.FieldLevel) bool {
	switch models.AccountKind(fl.Field().String()) {
	case models.AccountKindAsset, models.AccountKindLiability:
		return true
	}
	return false
}

func validateMonth(fl playgroundvalidator.FieldLevel) bool {
	m := fl.Field().Int()
	return m >= 1 && m <= 12
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

// Fields renders the errors as a field to message map.
func (ve ValidationErrors) Fields() map[string]string {
	errMap := make(map[string]string, len(ve))
	for _, err := range ve {
		field := err.Field()
		param := err.Param()

		switch err.Tag() {
		case "required":
			errMap[field] = fmt.Sprintf("%s is required", field)
		case "email":
			errMap[field] = fmt.Sprintf("%s must be a valid email", field)
		case "min":
			errMap[field] = fmt.Sprintf("%s must be at least %s", field, param)
		case "max":
			errMap[field] = fmt.Sprintf("%s must be at most %s", field, param)
		case "len":
			errMap[field] = fmt.Sprintf("%s must have length %s", field, param)
		case "url":
			errMap[field] = fmt.Sprintf("%s must be a valid URL", field)
		case "uuid":
			errMap[field] = fmt.Sprintf("%s must be a valid UUID", field)
		case "oneof":
			errMap[field] = fmt.Sprintf("%s must be one of [%s]", field, param)
		case "module":
			errMap[field] = fmt.Sprintf("%s must be a module name or 'all'", field)
		case "invoice_status":
			errMap[field] = fmt.Sprintf("%s must be one of: draft, sent, paid, cancelled", field)
		case "task_status":
			errMap[field] = fmt.Sprintf("%s must be one of: todo, in_progress, done", field)
		case "account_kind":
			errMap[field] = fmt.Sprintf("%s must be either 'asset' or 'liability'", field)
		case "month":
			errMap[field] = fmt.Sprintf("%s must be between 1 and 12", field)
		default:
			errMap[field] = fmt.Sprintf("%s failed validation: %s", field, err.Tag())
		}
	}
	return errMap
}
