// Package validation checks request and corpus structs with go-playground/validator and reports
// failures as evalerrors.ValidationError, naming fields by their JSON names.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/formbricks/evalhub/internal/evalerrors"
)

// validate is safe for concurrent Struct calls. Registration only happens in newValidator.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation("no_null_bytes", noNullBytes); err != nil {
		panic(fmt.Sprintf("register no_null_bytes: %v", err))
	}

	return v
}

// jsonFieldName names a field after its json tag, falling back to the Go name.
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")

	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}

// ValidateStruct returns nil or a *evalerrors.ValidationError listing every failed field.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return evalerrors.NewValidationError("", err.Error())
	}

	fields := make([]string, len(fieldErrs))
	messages := make([]string, len(fieldErrs))

	for i, fe := range fieldErrs {
		fields[i] = fe.Field()
		messages[i] = describe(fe)
	}

	return evalerrors.NewValidationError(
		strings.Join(fields, ","),
		"validation failed: "+strings.Join(messages, "; "),
	)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "no_null_bytes":
		return fe.Field() + " must not contain NULL bytes"
	default:
		return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
}

// noNullBytes rejects strings (or non-nil *string) containing NUL, which PostgreSQL text refuses.
func noNullBytes(fl validator.FieldLevel) bool {
	field := fl.Field()

	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return true
		}

		field = field.Elem()
	}

	return field.Kind() != reflect.String || !strings.ContainsRune(field.String(), 0)
}
