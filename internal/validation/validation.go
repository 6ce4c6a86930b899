// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package validation wraps go-playground/validator for request structs.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"codeberg.org/oliverandrich/go-shop-backend/internal/apperr"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Get returns the shared validator. Field names in errors are taken from
// the json tag.
func Get() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validator adapts the shared validator to echo.Validator.
type Validator struct{}

func (Validator) Validate(i any) error {
	return Struct(i)
}

// Struct validates s and returns an *apperr.Error with field details on failure.
func Struct(s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.BadRequest(err.Error())
	}

	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], message(fe))
	}
	return apperr.Validation(message(verrs[0]), fields)
}

var messages = map[string]string{
	"required": "The %s field is required.",
	"email":    "The %s field must be a valid email address.",
	"url":      "The %s field must be a valid URL.",
	"eqfield":  "The %s does not match.",
	"dive":     "The %s field is invalid.",
	"numeric":  "The %s field must be a number.",
}

var messagesWithParam = map[string]string{
	"max":   "The %s field must not be greater than %s characters.",
	"min":   "The %s field must be at least %s characters.",
	"oneof": "The %s field must be one of: %s.",
	"gte":   "The %s field must be at least %s.",
	"lte":   "The %s field must be at most %s.",
	"gt":    "The %s field must be greater than %s.",
	"len":   "The %s field must be %s characters.",
}

func message(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	tag := fe.Tag()

	if tmpl, ok := messages[tag]; ok {
		return fmt.Sprintf(tmpl, field)
	}

	switch tag {
	case "oneof":
		return fmt.Sprintf(messagesWithParam[tag], field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "max":
		if k := fe.Kind(); k != reflect.String && k != reflect.Slice {
			return fmt.Sprintf(messagesWithParam[map[string]string{"min": "gte", "max": "lte"}[tag]], field, fe.Param())
		}
	}

	if tmpl, ok := messagesWithParam[tag]; ok {
		return fmt.Sprintf(tmpl, field, fe.Param())
	}
	return fmt.Sprintf("The %s field is invalid.", field)
}
