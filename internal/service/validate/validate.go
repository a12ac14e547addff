// Package validate holds the shared struct validator with the ledger's custom tags:
// waste_category, entry_status and redemption_status.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
	"github.com/nkiryanov/greenpoints/internal/models"
)

var v = New()

// New returns validator configured with json field names and custom tags
func New() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(useJSONTagNames)

	_ = validate.RegisterValidation("waste_category", func(fl validator.FieldLevel) bool {
		return models.WasteCategory(fl.Field().String()).IsValid()
	})
	_ = validate.RegisterValidation("entry_status", func(fl validator.FieldLevel) bool {
		return models.EntryStatus(fl.Field().String()).IsValid()
	})
	_ = validate.RegisterValidation("redemption_status", func(fl validator.FieldLevel) bool {
		return models.RedemptionStatus(fl.Field().String()).IsValid()
	})

	return validate
}

// Struct validates s with the shared validator and returns raw validator errors
func Struct(s any) error {
	return v.Struct(s)
}

// Model validates s and converts failures to apperrors.ErrInvalidInput naming the failed fields
func Model(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("validation: %w", err)
	}

	fields := make([]string, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}

	return apperrors.Invalid("invalid fields: %s", strings.Join(fields, ", "))
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}
