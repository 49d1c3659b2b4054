package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmacy-pos/pkg/validator"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrDuplicate           = errors.New("already exists")
	ErrInUse               = errors.New("record is in use")
	ErrAccessDenied        = errors.New("access denied")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrBatchNotFound       = fmt.Errorf("batch %w", ErrNotFound)
	ErrBatchExpired        = errors.New("batch is expired")
	ErrInsufficientPayment = errors.New("amount paid is less than the sale total")
	ErrInvalidTransition   = errors.New("invalid purchase order status transition")
	ErrReceiptInProgress   = errors.New("purchase order receipt already in progress")
)

// InsufficientStockError names the batch that could not cover a request.
type InsufficientStockError struct {
	BatchID     uuid.UUID `json:"batch_id"`
	BatchNumber string    `json:"batch_number,omitempty"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock in batch %s: requested %d, available %d", e.BatchID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: field '%s' failed on tag '%s'", e.Field, e.Tag)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// validate runs struct validation and returns the first failure as a ValidationError.
func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Field: errs[0].FailedField, Tag: errs[0].Tag}
	}
	return nil
}

// storeErr maps store errors onto service errors. notFound replaces gorm.ErrRecordNotFound.
func storeErr(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrInUse
	}
	return err
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}
