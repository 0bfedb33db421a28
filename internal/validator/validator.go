// Package validator wires go-playground/validator into Gin binding and turns
// binding failures into VALIDATION_ERROR responses.
package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/response"
)

var (
	trans     ut.Translator
	setupOnce sync.Once
)

// Setup registers English translations and JSON field names on Gin's
// binding engine. Safe to call more than once.
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, trans)
	})
}

// TranslateErrors maps a binding error to field name -> message. Errors that
// are not validation errors (malformed JSON) land under "body".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if trans != nil {
				fields[fe.Field()] = fe.Translate(trans)
			} else {
				fields[fe.Field()] = fe.Error()
			}
		}
		return fields
	}

	fields["body"] = "Request body is not valid JSON for this endpoint"
	return fields
}

// Bind binds and validates the JSON body into dst.
func Bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return Failure(err)
	}
	return nil
}

// Failure wraps a binding error as a VALIDATION_ERROR carrying the field map.
func Failure(err error) *apperror.Error {
	return apperror.Validation("Request validation failed", "", map[string]any{
		response.FieldsKey: TranslateErrors(err),
	}).Wrap(err)
}
