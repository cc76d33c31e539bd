package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

// RosterValidator checks candidate records for completeness, range and roll uniqueness.
type RosterValidator struct {
	validate *validator.Validate
}

// NewRosterValidator registers the roster rules on validate, or on a fresh validator when nil.
func NewRosterValidator(validate *validator.Validate) *RosterValidator {
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterTagNameFunc(jsonFieldName)
	mustRegister(validate, "department", func(fl validator.FieldLevel) bool {
		return models.Department(fl.Field().String()).Valid()
	})
	mustRegister(validate, "year", func(fl validator.FieldLevel) bool {
		return models.Year(fl.Field().String()).Valid()
	})
	mustRegister(validate, "cgpa_number", func(fl validator.FieldLevel) bool {
		_, err := models.ParseCGPA(fl.Field().String())
		return err == nil || errors.Is(err, models.ErrCGPAOverflow)
	})
	mustRegister(validate, "cgpa_range", func(fl validator.FieldLevel) bool {
		v, err := models.ParseCGPA(fl.Field().String())
		return err == nil && models.CGPAInRange(v)
	})
	return &RosterValidator{validate: validate}
}

// Validate returns every applicable field error for candidate. The record whose
// roll equals editingRoll is excluded from the uniqueness check. An empty result
// means the candidate may be admitted.
func (v *RosterValidator) Validate(candidate models.StudentInput, roster []models.Student, editingRoll string) models.FieldErrors {
	in := candidate.Normalize()
	errs := models.FieldErrors{}

	if err := v.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			errs["_"] = err.Error()
			return errs
		}
		for _, fe := range fieldErrs {
			errs[fe.Field()] = messageForTag(fe.Tag())
		}
	}

	if _, failed := errs["roll"]; !failed {
		for _, s := range roster {
			if s.Roll == in.Roll && s.Roll != editingRoll {
				errs["roll"] = models.MsgUnique
				break
			}
		}
	}
	return errs
}

func messageForTag(tag string) string {
	if tag == "cgpa_range" {
		return models.MsgOutOfRange
	}
	// unparsable numbers and values outside an enumeration read as missing input
	return models.MsgRequired
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func mustRegister(validate *validator.Validate, tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}
