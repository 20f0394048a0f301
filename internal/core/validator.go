package core

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"eldersafe/internal/types"
)

// Validator wraps go-playground/validator so handlers get AppError results
// instead of raw validator errors.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a Validator with struct-tag validation enabled.
func NewValidator() *Validator {
	return &Validator{
		v: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateStruct validates dst against its `validate` struct tags. On failure
// it returns a *types.AppError with code validation_missing_required_field
// and a per-field details map; the raw validator messages are never exposed.
func (val *Validator) ValidateStruct(dst any) error {
	err := val.v.Struct(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"request validation failed",
			err,
		)
	}

	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fmt.Sprintf("failed %q constraint", fe.Tag())
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationMissingField,
		"request validation failed",
		err,
		details,
	)
}
