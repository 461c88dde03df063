package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/facilityhub/dept-chat/internal/models"
)

// Validator wraps go-playground validation so the same rules run behind
// echo's c.Validate and directly inside usecases, independent of transport.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	validate := validator.New()

	commonTags := []string{
		"json",
		"param",
		"query",
		"header",
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range commonTags {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return ""
	})

	return &Validator{
		validate: validate,
	}
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return models.ValidationError("%s", err.Error())
	}
	return nil
}
