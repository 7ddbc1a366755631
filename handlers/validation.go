package handlers

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validatorsOnce sync.Once

// registerValidators adds the custom binding tags used by the models.
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("isodate", isoDate); err != nil {
			panic(err)
		}
	})
}

// isoDate accepts a calendar date in YYYY-MM-DD form.
func isoDate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

// ValidateRequest applies the same binding rules the HTTP routes use.
func ValidateRequest(obj any) error {
	registerValidators()
	return binding.Validator.ValidateStruct(obj)
}
