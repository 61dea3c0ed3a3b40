package attendance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	statusTag  = "attendance_status"
	statusText = "must be one of PRESENT, ABSENT, LATE, HALF_DAY or LEAVE"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterEnumValidation(validate, translator, statusTag, statusText, func(s string) bool {
		return Status(s).IsValid()
	})
}
