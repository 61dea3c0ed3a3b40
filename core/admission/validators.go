package admission

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

func InitValidators(validate *validator.Validate, _ ut.Translator) {
	validate.RegisterStructValidation(studentInfoStructValidation, StudentInfo{})
}

func studentInfoStructValidation(sl validator.StructLevel) {
	if si, ok := sl.Current().Interface().(StudentInfo); ok && si.DateOfBirth.IsZero() {
		sl.ReportError(si.DateOfBirth, "dateOfBirth", "DateOfBirth", "required", "")
	}
}
