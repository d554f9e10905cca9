package handlers

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerValidatorsOnce sync.Once

// registerValidators installs custom binding validations on gin's shared
// validator engine.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		// Answers are option letters, one for single-choice questions and
		// several for multiselect ("AC"). Case is normalized downstream.
		_ = v.RegisterValidation("answerletters", func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			if value == "" {
				return false
			}
			for _, r := range value {
				if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
					return false
				}
			}
			return true
		})
	})
}
