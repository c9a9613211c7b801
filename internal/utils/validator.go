package utils

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/trellis-commerce/storefront-api/internal/utils/response"
)

// NewValidator builds a validator that reports fields under their JSON names
// so failures line up with the wire format.
func NewValidator() *validator.Validate {

	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}

		return name
	})

	return v
}

// FieldErrors translates struct validation errors into the field -> reason
// map carried by the fail envelope.
func FieldErrors(errs validator.ValidationErrors) map[string]string {

	fields := make(map[string]string, len(errs))

	for _, err := range errs {

		var message string

		switch err.Tag() {
		case "required":
			message = "is required"
		case "email":
			message = "must be a valid email address"
		case "min":
			if err.Kind() == reflect.String {
				message = fmt.Sprintf("must be a string of at least %s characters", err.Param())
			} else {
				message = fmt.Sprintf("must be at least %s", err.Param())
			}
		case "gt":
			if err.Kind() == reflect.Float64 {
				message = "must be a positive float"
			} else {
				message = "must be a positive integer"
			}
		case "url":
			message = "must be a valid URL"
		case "len":
			message = fmt.Sprintf("must be %s characters long", err.Param())
		default:
			message = "is invalid"
		}

		fields[err.Field()] = message
	}

	return fields
}

// ParseAndValidate decodes the JSON body into dest and checks its shape,
// writing the fail envelope itself when either step rejects the input.
func ParseAndValidate(r *http.Request, w http.ResponseWriter, dest any, validate *validator.Validate) bool {

	if err := DecodeJSONBody(r, dest); err != nil {
		response.Fail(w, http.StatusBadRequest, map[string]string{"body": err.Error()})

		return false
	}

	if err := validate.Struct(dest); err != nil {
		var validationErrs validator.ValidationErrors
		if ok := AsValidationErrors(err, &validationErrs); ok {
			response.Fail(w, http.StatusBadRequest, FieldErrors(validationErrs))
		} else {
			response.Fail(w, http.StatusBadRequest, map[string]string{"body": "invalid input data"})
		}

		return false
	}

	return true
}

func AsValidationErrors(err error, target *validator.ValidationErrors) bool {
	if errs, ok := err.(validator.ValidationErrors); ok {
		*target = errs

		return true
	}

	return false
}
