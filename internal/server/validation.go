package server

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"think-alike/internal/game"
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("name", func(fl validator.FieldLevel) bool {
			_, err := game.ValidateName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("topic", func(fl validator.FieldLevel) bool {
			_, err := game.ValidateTopic(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("answer", func(fl validator.FieldLevel) bool {
			_, err := game.ValidateAnswer(fl.Field().String())
			return err == nil
		})
	})
}
