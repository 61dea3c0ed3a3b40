package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name    string
		pwd     string
		attrs   []string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "Abcd 1234!", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "no special", pwd: "Abcd12345", wantTag: pwdComplexityTag},
		{name: "no upper", pwd: "abcd1234!", wantTag: pwdComplexityTag},
		{name: "similar to name", pwd: "Johnson1!", attrs: []string{"johnson"}, wantTag: pwdAttrSimTag},
		{name: "common", pwd: "P@ssw0rd", wantTag: pwdNoCommonTag},
		{name: "valid", pwd: "Tr1cky-Pa$s", attrs: []string{"Jane Doe", "jane@test.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTag, validatePassword(tt.pwd, tt.attrs...))
		})
	}
}

func TestCheckPassword(t *testing.T) {
	err := checkPassword("short")
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))

	vErr := err.(*core.ValidationError)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "password", vErr.Fields[0].Field)
	assert.Equal(t, pwdMinLenText, vErr.Fields[0].Error)

	assert.NoError(t, checkPassword("Tr1cky-Pa$s"))
}

func TestGenerateTempPassword(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		pwd, err := GenerateTempPassword()
		require.NoError(t, err)
		assert.Len(t, pwd, tempPasswordLen)
		assert.Empty(t, validatePassword(pwd), pwd)
		assert.False(t, seen[pwd])
		seen[pwd] = true
	}
}

func TestNewUser_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	tests := []struct {
		name      string
		nu        NewUser
		wantField string
	}{
		{
			name:      "invalid role",
			nu:        NewUser{Name: "Jane", Email: "jane@test.test", Role: "STUDENT", Password: "Tr1cky-Pa$s", PasswordConfirm: "Tr1cky-Pa$s"},
			wantField: "role",
		},
		{
			name:      "password mismatch",
			nu:        NewUser{Name: "Jane", Email: "jane@test.test", Role: RoleAdmin, Password: "Tr1cky-Pa$s", PasswordConfirm: "other"},
			wantField: "passwordConfirm",
		},
		{
			name:      "weak password",
			nu:        NewUser{Name: "Jane", Email: "jane@test.test", Role: RoleAdmin, Password: "password", PasswordConfirm: "password"},
			wantField: "password",
		},
		{
			name: "valid",
			nu:   NewUser{Name: " Jane ", Email: " JANE@test.test", Role: RoleAdmin, Password: "Tr1cky-Pa$s", PasswordConfirm: "Tr1cky-Pa$s"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(validate)
			if tt.wantField == "" {
				assert.NoError(t, err)
				assert.Equal(t, "jane@test.test", tt.nu.Email)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "%v", err)
			assert.Contains(t, core.TranslateValidationErrors(vErrs, translator), tt.wantField)
		})
	}
}
