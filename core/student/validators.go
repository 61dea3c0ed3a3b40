package student

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	feeStatusTag  = "fee_status"
	feeStatusText = "must be one of PAID, UNPAID or WAIVED"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterEnumValidation(validate, translator, feeStatusTag, feeStatusText, func(s string) bool {
		return FeeStatus(s).IsValid()
	})
}
