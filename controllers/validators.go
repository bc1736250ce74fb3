package controllers

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"rms-be/models"
)

var registerOnce sync.Once

// RegisterValidators adds the domain enum tags to gin's binding validator and
// reports fields by their JSON names. It is safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic("controllers: gin binding engine is not go-playground/validator")
		}

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})

		mustRegister(v, "issuecategory", func(fl validator.FieldLevel) bool {
			return models.IssueCategory(fl.Field().String()).Valid()
		})
		mustRegister(v, "issuestatus", func(fl validator.FieldLevel) bool {
			return models.IssueStatus(fl.Field().String()).Valid()
		})
		mustRegister(v, "issuepriority", func(fl validator.FieldLevel) bool {
			return models.IssuePriority(fl.Field().String()).Valid()
		})
		mustRegister(v, "votetype", func(fl validator.FieldLevel) bool {
			return models.VoteType(fl.Field().String()).Valid()
		})
	})
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("controllers: register " + tag + ": " + err.Error())
	}
}
