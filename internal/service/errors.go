package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

func errValidation(message string) error {
	return appErrors.Clone(appErrors.ErrValidation, message)
}

func errInvalidDate(field string) error {
	return errValidation(field + " must be formatted as YYYY-MM-DD")
}

func errInternal(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// validateStruct runs struct tag validation. The first failing field is
// named in the message.
func validateStruct(v *validator.Validate, req interface{}, message string) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		message = fmt.Sprintf("%s: %s failed %s", message, verrs[0].Field(), verrs[0].Tag())
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
