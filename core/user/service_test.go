package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/tests"
)

func TestService_Authenticate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, env.UserRepo, "Jane", "jane@test.cd", "Tr1cky-Pa$s", user.RoleAdmin, true)
	testutil.CreateUser(t, env.UserRepo, "Gone", "gone@test.cd", "Tr1cky-Pa$s", user.RoleParent, false)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown email", email: "nobody@test.cd", pwd: "Tr1cky-Pa$s", wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", email: "jane@test.cd", pwd: "nope", wantErr: user.ErrInvalidCredentials},
		{name: "deactivated", email: "gone@test.cd", pwd: "Tr1cky-Pa$s", wantErr: user.ErrAccountDeactivated},
		{name: "valid", email: " JANE@test.cd ", pwd: "Tr1cky-Pa$s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := env.UserSvc.Authenticate(ctx, tt.email, tt.pwd)
			assert.Equal(t, tt.wantErr, err)
			if tt.wantErr == nil {
				assert.NotNil(t, usr.LastLogin)
			}
		})
	}
}

func TestService_Provision(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	usr, pwd, err := env.UserSvc.Provision(ctx, user.NewAccount{Name: " Mama ", Email: "Mama@Test.cd", Role: user.RoleParent})
	require.NoError(t, err)
	assert.NotEmpty(t, pwd)
	assert.Equal(t, "mama@test.cd", usr.Email)
	assert.Equal(t, "Mama", usr.Name)
	assert.NoError(t, usr.CheckPassword(pwd))

	again, pwd, err := env.UserSvc.Provision(ctx, user.NewAccount{Name: "Other", Email: "mama@test.cd", Role: user.RoleParent})
	require.NoError(t, err)
	assert.Empty(t, pwd)
	assert.Equal(t, usr.ID, again.ID)
	assert.Equal(t, "Mama", again.Name)
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	jane := testutil.CreateUser(t, env.UserRepo, "Jane", "jane@test.cd", "", user.RoleAdmin, true)
	testutil.CreateUser(t, env.UserRepo, "John", "john@test.cd", "", user.RoleAdmin, true)

	taken := "john@test.cd"
	_, err := env.UserSvc.Update(ctx, jane.ID, user.UpdateUser{Email: &taken})
	assert.Equal(t, user.ErrEmailExists, err)

	name, phone := "Jane D.", "+243000"
	usr, err := env.UserSvc.Update(ctx, jane.ID, user.UpdateUser{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Jane D.", usr.Name)
	assert.Equal(t, "+243000", usr.Phone)
	assert.Equal(t, "jane@test.cd", usr.Email)

	_, err = env.UserSvc.Update(ctx, "nope", user.UpdateUser{Name: &name})
	assert.True(t, core.IsNotFound(err))
}

func TestService_PasswordReset(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	jane := testutil.CreateUser(t, env.UserRepo, "Jane", "jane@test.cd", "Tr1cky-Pa$s", user.RoleAdmin, true)

	require.NoError(t, env.UserSvc.RequestPasswordReset(ctx, "jane@test.cd"))
	msgs := emailsvc.LastSentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "password_reset", msgs[0].TemplateName)

	assert.True(t, core.IsNotFound(env.UserSvc.RequestPasswordReset(ctx, "nobody@test.cd")))

	token, err := user.MakeToken(env.Conf, jane)
	require.NoError(t, err)

	t.Run("bad uid", func(t *testing.T) {
		_, err := env.UserSvc.ResetPassword(ctx, user.ResetUserPassword{UID: "???", Token: token, Password: "N3w-Secret!"})
		assert.True(t, core.IsValidation(err))
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := env.UserSvc.ResetPassword(ctx, user.ResetUserPassword{UID: user.EncodeUID(jane), Token: token, Password: "123"})
		assert.True(t, core.IsValidation(err))
	})

	t.Run("valid", func(t *testing.T) {
		usr, err := env.UserSvc.ResetPassword(ctx, user.ResetUserPassword{UID: user.EncodeUID(jane), Token: token, Password: "N3w-Secret!"})
		require.NoError(t, err)
		assert.NoError(t, usr.CheckPassword("N3w-Secret!"))

		// the password changed so the token is spent
		_, err = env.UserSvc.ResetPassword(ctx, user.ResetUserPassword{UID: user.EncodeUID(jane), Token: token, Password: "An0ther-Secret!"})
		assert.True(t, core.IsValidation(err))
	})
}
