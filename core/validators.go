package core

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"

	notEmptyTag  = "notempty"
	notEmptyText = "at least one value is required"

	genderTag  = "gender"
	genderText = "must be one of male, female or other"

	admissionStatusTag  = "admission_status"
	admissionStatusText = "invalid admission status"
)

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(notEmptyTag, notEmptyValidation)
	RegisterCustomTranslation(validate, translator, notEmptyTag, notEmptyText)
	RegisterEnumValidation(validate, translator, genderTag, genderText, func(s string) bool { return Gender(s).IsValid() })
	RegisterEnumValidation(validate, translator, admissionStatusTag, admissionStatusText, func(s string) bool {
		return AdmissionStatus(s).IsValid()
	})

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// RegisterEnumValidation registers `tag` as a validator of string fields accepting only the values
// for which isValid returns true.
func RegisterEnumValidation(
	validate *validator.Validate,
	translator ut.Translator,
	tag, text string,
	isValid func(string) bool,
) {
	_ = validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		return isValid(fl.Field().String())
	})
	RegisterCustomTranslation(validate, translator, tag, text)
}

// TranslateValidationErrors maps every failing field (nested fields joined with ".") to its message.
func TranslateValidationErrors(errs validator.ValidationErrors, translator ut.Translator) map[string]string {
	fldErrs := make(map[string]string, len(errs))
	for _, vErr := range errs {
		field := vErr.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:] // drop the root struct name
		}
		fldErrs[field] = vErr.Translate(translator)
	}
	return fldErrs
}

// Custom Global Validators

// notEmptyValidation requires a slice with at least one non-blank string.
func notEmptyValidation(fl validator.FieldLevel) bool {
	if ss, ok := fl.Field().Interface().([]string); ok {
		return len(CleanStrings(ss)) > 0
	}
	return fl.Field().Len() > 0
}
