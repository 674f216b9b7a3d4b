package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/CachoMX/vhlabs/internal/domain"
)

var (
	registerOnce sync.Once
	registerErr  error

	varNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// RegisterValidators installs the dashboard's custom binding rules on gin's
// validator engine and makes field errors report JSON names. Safe to call
// more than once.
//
//	channel  a sendable channel: email, sms or social (case-insensitive)
//	varname  a prompt placeholder name usable as {name}
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("handlers: gin validator engine is not go-playground/validator")
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		if err := v.RegisterValidation("channel", func(fl validator.FieldLevel) bool {
			return domain.ValidSendChannel(strings.ToLower(strings.TrimSpace(fl.Field().String())))
		}); err != nil {
			registerErr = err
			return
		}
		registerErr = v.RegisterValidation("varname", func(fl validator.FieldLevel) bool {
			return varNameRE.MatchString(fl.Field().String())
		})
	})
	return registerErr
}

// bindingMessage turns a bind error into a message naming the first bad
// field, e.g. "channel must be one of: email, sms, social".
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s must be %s %s", field, map[string]string{"gte": ">=", "lte": "<="}[fe.Tag()], fe.Param())
	case "url":
		return field + " must be a valid URL"
	case "channel":
		return "channel must be one of: email, sms, social"
	case "varname":
		return fmt.Sprintf("%s: %q is not a valid variable name", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
