// Package validator wraps go-playground/validator v10 with English
// translations and the application's custom rules.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

// reOTP matches exactly six decimal digits, the only accepted code format.
var reOTP = regexp.MustCompile(`^[0-9]{6}$`)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// Validator validates annotated structs.
type Validator interface {
	Validate(data any) error
}

// V10Validator implements Validator using go-playground/validator v10.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// V10ValidationError is a field-to-message map returned on failure. Keys are
// snake_case to match the JSON wire format.
type V10ValidationError map[string]string

// Error implements the error interface.
func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(vs)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Values returns the field error map.
func (vs V10ValidationError) Values() map[string]string {
	return vs
}

// NewV10Validator constructs a V10Validator with English translations and the
// otp rule registered.
func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	if err := registerOTPRule(validate, enTrans); err != nil {
		return nil, err
	}

	return &V10Validator{
		validate:   validate,
		translator: enTrans,
	}, nil
}

// Validate validates a struct and returns a V10ValidationError on failure.
func (v *V10Validator) Validate(data any) error {
	if err := v.validate.Struct(data); err != nil {
		var validateErrs validator.ValidationErrors
		if !errors.As(err, &validateErrs) {
			return err
		}

		errV10 := make(V10ValidationError)
		for _, fe := range validateErrs {
			errV10[toLowerSnake(fe.Field())] = fe.Translate(v.translator)
		}

		return errV10
	}

	return nil
}

func registerOTPRule(validate *validator.Validate, enTrans ut.Translator) error {
	if err := validate.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
		code, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}

		return reOTP.MatchString(code)
	}); err != nil {
		return err
	}

	return validate.RegisterTranslation("otp", enTrans,
		func(ut ut.Translator) error {
			return ut.Add("otp", "{0} must be a 6-digit code", false)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, err := ut.T(fe.Tag(), fe.Field())
			if err != nil {
				return fe.Field() + " must be a 6-digit code"
			}
			return t
		},
	)
}

func toLowerSnake(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
