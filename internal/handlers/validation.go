package handlers

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/justsurfingit/job-funnel-tracker/internal/stages"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by the DTOs.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err := v.RegisterValidation("jobstatus", func(fl validator.FieldLevel) bool {
			return stages.Status(fl.Field().String()).Valid()
		})
		if err != nil {
			panic(fmt.Sprintf("handlers: register jobstatus validator: %v", err))
		}
	})
}
