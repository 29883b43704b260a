package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/campus-grievance-api/internal/models"
)

// NewValidator returns the validator request DTOs are checked with. It adds the "branch" tag,
// which accepts only the departments in models.Branches.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("branch", func(fl validator.FieldLevel) bool {
		return models.ValidBranch(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}
