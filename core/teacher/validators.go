package teacher

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	employmentTypeTag  = "employment_type"
	employmentTypeText = "must be one of full-time, part-time or contract"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterEnumValidation(validate, translator, employmentTypeTag, employmentTypeText, func(s string) bool {
		return EmploymentType(s).IsValid()
	})
	validate.RegisterStructValidation(newTeacherStructValidation, NewTeacher{})
}

func newTeacherStructValidation(sl validator.StructLevel) {
	if nt, ok := sl.Current().Interface().(NewTeacher); ok && nt.JoiningDate.IsZero() {
		sl.ReportError(nt.JoiningDate, "joiningDate", "JoiningDate", "required", "")
	}
}
