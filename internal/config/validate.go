package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct formats go-playground/validator errors into a single
// human-readable error.
// It backs the "Input error" path for the request/batch
// shapes consumed at the cmd/verifyd boundary.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	var messages []string
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		tag := fe.Tag()
		param := fe.Param()

		switch tag {
		case "required":
			messages = append(messages, field+" is required")
		case "min":
			messages = append(messages, field+" must be at least "+param)
		case "max":
			messages = append(messages, field+" must be at most "+param)
		case "email":
			messages = append(messages, field+" must be a valid email")
		case "len":
			messages = append(messages, field+" must be exactly "+param)
		default:
			messages = append(messages, field+" is invalid")
		}
	}

	return fmt.Errorf(strings.Join(messages, ", "))
}
