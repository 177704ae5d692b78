// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

// Package validation provides request validation built on
// go-playground/validator with Resonata-specific custom validators.
package validation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/resonata/resonata/internal/recommend"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// GetValidator returns the singleton validator instance with custom
// validators registered.
func GetValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// feedback: value must be a recognized feedback type.
		_ = validate.RegisterValidation("feedback", func(fl validator.FieldLevel) bool {
			return recommend.Feedback(fl.Field().String()).Valid()
		})

		// mood: value must be one of the known mood labels, or empty.
		_ = validate.RegisterValidation("mood", func(fl validator.FieldLevel) bool {
			v := fl.Field().String()
			if v == "" {
				return true
			}
			_, ok := recommend.MoodCentroid(strings.ToLower(v))
			return ok
		})
	})
	return validate
}

// ValidationError represents a single field validation failure.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   any
	message string
}

// Field returns the name of the field that failed validation.
func (e *ValidationError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string { return e.tag }

// Message returns a human-readable description of the failure.
func (e *ValidationError) Message() string { return e.message }

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q failed validation: %s", e.field, e.message)
}

// RequestValidationError aggregates all validation failures for a
// request.
type RequestValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *RequestValidationError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	parts := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		parts[i] = ve.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e.Errors), strings.Join(parts, "; "))
}

// ValidateStruct validates a struct and returns a
// RequestValidationError describing all failures, or nil if the
// struct is valid.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &RequestValidationError{
			Errors: []ValidationError{{
				field:   "request",
				tag:     "invalid",
				message: err.Error(),
			}},
		}
	}

	out := &RequestValidationError{Errors: make([]ValidationError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, ValidationError{
			field:   fieldName(fe),
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: messageFor(fe),
		})
	}
	return out
}

func fieldName(fe validator.FieldError) string {
	// Lower-case the leading character for API-facing names.
	name := fe.Field()
	return strings.ToLower(name[:1]) + name[1:]
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	case "feedback":
		return "must be a recognized feedback type (love, like, neutral, skip, dislike)"
	case "mood":
		return "must be a recognized mood label"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
