package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("nonul", noNUL)
	return v
}

// noNUL rejects strings, and decoded JSON documents in byte slices, holding a NUL
// character. Postgres text and jsonb cannot store one.
func noNUL(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		return !strings.ContainsRune(field.String(), 0)
	case reflect.Slice:
		raw := field.Bytes()
		if len(raw) == 0 {
			return true
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return !strings.ContainsRune(string(raw), 0)
		}
		return !containsNUL(doc)
	default:
		return true
	}
}

func containsNUL(v any) bool {
	switch x := v.(type) {
	case string:
		return strings.ContainsRune(x, 0)
	case []any:
		for _, item := range x {
			if containsNUL(item) {
				return true
			}
		}
	case map[string]any:
		for k, item := range x {
			if strings.ContainsRune(k, 0) || containsNUL(item) {
				return true
			}
		}
	}
	return false
}

// validateStruct returns one readable problem per failed constraint
func validateStruct(s any) []string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}
	return problems
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "uuid":
		return field + " must be a valid UUID"
	case "alpha":
		return field + " must contain only letters"
	case "json":
		return field + " must be valid JSON"
	case "nonul":
		return field + " must not contain NUL characters"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
