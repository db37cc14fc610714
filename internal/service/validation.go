package service

import (
	"fmt"
	"strings"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs the `validate` tags of s and reports failures as invalid input.
func validateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
	}
	return nil
}

func normalizeOwner(owner string) (string, error) {
	owner = strings.ToLower(strings.TrimSpace(owner))
	if err := validate.Var(owner, "required,email,max=320"); err != nil {
		return "", fmt.Errorf("%w: owner email %q", entity.ErrInvalidInput, owner)
	}
	return owner, nil
}
