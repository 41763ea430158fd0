package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
)

// validate is the shared validator, set up by InitValidator.
var validate *validator.Validate

// fieldMessages holds the user-facing message per validation tag. Tags whose
// message depends on the parameter are handled in fieldErrorMessage.
var fieldMessages = map[string]string{
	"required":  "This field is required",
	"notblank":  "Must not be blank",
	"printable": "Must not contain control characters",
	"numeric":   "Must contain only digits",
	"alphanum":  "Must contain only alphanumeric characters",
}

// InitValidator creates the validator, reports fields by their JSON names
// and registers the custom rules.
func InitValidator() {
	validate = validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	for tag, fn := range map[string]validator.Func{
		"notblank":  validateNotBlank,
		"printable": validatePrintable,
	} {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			log.Error().Err(err).Str("tag", tag).Msg("Failed to register validation")
		}
	}

	log.Info().Msg("Validator initialized")
}

// validateNotBlank rejects strings that are empty once surrounding whitespace is removed
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validatePrintable rejects control characters. Usernames and session names
// are shown to other participants and written to logs.
func validatePrintable(fl validator.FieldLevel) bool {
	return strings.IndexFunc(fl.Field().String(), unicode.IsControl) < 0
}

// DecodeJSON decodes a single JSON object from the request body into v.
// Unknown fields, trailing data and bodies over MaxRequestBodySize are rejected.
func DecodeJSON(r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, constants.MaxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return decodeError(err)
	}

	if dec.More() {
		return NewBadRequestError("Request body must only contain a single JSON object")
	}
	return nil
}

func decodeError(err error) error {
	var (
		maxBytesErr *http.MaxBytesError
		syntaxErr   *json.SyntaxError
		typeErr     *json.UnmarshalTypeError
		invalidErr  *json.InvalidUnmarshalError
	)

	switch {
	case errors.As(err, &maxBytesErr):
		return NewBadRequestError(constants.MsgRequestBodyTooLarge)
	case errors.Is(err, io.EOF):
		return NewBadRequestError(constants.MsgEmptyRequestBody)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return NewBadRequestError(constants.MsgMalformedJSON)
	case errors.As(err, &syntaxErr):
		return NewBadRequestError(fmt.Sprintf("%s (at position %d)", constants.MsgMalformedJSON, syntaxErr.Offset))
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return NewValidationError(typeErr.Field, fmt.Sprintf("Must be a %s", typeErr.Type))
		}
		return NewBadRequestError(fmt.Sprintf("Request body contains incorrect JSON type (at position %d)", typeErr.Offset))
	case errors.As(err, &invalidErr):
		return NewInternalServerError(err)
	}

	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return NewValidationError("unknown_field", "Request body contains unknown field "+field)
	}
	return NewBadRequestError("Error decoding JSON: " + err.Error())
}

// ValidateStruct runs the struct's validate tags. A single failing field is
// reported as that field's error; several are collected into the details.
func ValidateStruct(v interface{}) error {
	if validate == nil {
		InitValidator()
	}

	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewBadRequestError(err.Error())
	}

	if len(fieldErrs) == 1 {
		return NewValidationError(fieldErrs[0].Field(), fieldErrorMessage(fieldErrs[0]))
	}

	details := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fieldErrorMessage(fe)
	}
	return &AppError{
		Err:        ErrValidation,
		StatusCode: http.StatusBadRequest,
		Message:    "Multiple validation errors",
		Details:    details,
	}
}

// DecodeAndValidate decodes a JSON request body and validates it
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := DecodeJSON(r, v); err != nil {
		return err
	}
	return ValidateStruct(v)
}

func fieldErrorMessage(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Tag()]; ok {
		return msg
	}

	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "min", "gte":
		if isString {
			return fmt.Sprintf("Must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max", "lte":
		if isString {
			return fmt.Sprintf("Must be at most %s characters long", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters long", fe.Param())
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return fmt.Sprintf("Failed validation on the '%s' tag", fe.Tag())
	}
}
