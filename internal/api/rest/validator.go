package rest

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var currencyCodeRe = regexp.MustCompile(`^[a-zA-Z]{3}$`)

// registerValidations добавляет кастомные правила валидации в движок Gin
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// Трехбуквенный код валюты (ISO 4217)
		_ = v.RegisterValidation("currency_code", func(fl validator.FieldLevel) bool {
			return currencyCodeRe.MatchString(fl.Field().String())
		})
	}
}
