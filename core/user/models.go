package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
)

type Role string

// Roles
const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleParent  Role = "PARENT"
)

var AllRoles = []Role{RoleAdmin, RoleTeacher, RoleParent}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleParent:
		return true
	}
	return false
}

type User struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            Role       `json:"role"`
	Phone           string     `json:"phone"`
	Address         string     `json:"address"`
	Avatar          string     `json:"avatar"`
	IsActive        bool       `json:"isActive"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	PasswordHash    []byte     `json:"-"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"` // UTC
	CreatedAt       time.Time  `json:"createdAt"`           // UTC
	UpdatedAt       time.Time  `json:"updatedAt"`           // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsParent() bool  { return u.Role == RoleParent }

func (u User) HasAnyRole(roles ...Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            Role   `json:"role" validate:"required,role"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
	nu.Address = core.CleanString(nu.Address)
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Clean()
	return validate.Struct(nu)
}

// NewAccount describes a User provisioned on someone else's behalf (parents on admission approval,
// teachers created by an admin). A random temporary password is generated for it.
type NewAccount struct {
	Name    string
	Email   string
	Role    Role
	Phone   string
	Address string
}

// UpdateUser defines what information may be provided to modify an existing User.
// Nil fields are left unchanged.
type UpdateUser struct {
	Name    *string `json:"name"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Avatar  *string `json:"avatar"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate) error {
	clean := func(s *string, lower ...bool) {
		if s != nil {
			*s = core.CleanString(*s, lower...)
		}
	}
	clean(uu.Name)
	clean(uu.Email, true /* lower */)
	clean(uu.Phone)
	clean(uu.Address)
	clean(uu.Avatar)

	if err := validate.Struct(uu); err != nil {
		return err
	}
	if uu.Name != nil && *uu.Name == "" {
		return core.NewValidationError(errNameRequired, core.FieldError{Field: "name", Error: errNameRequired.Error()})
	}
	if uu.Email != nil && *uu.Email == "" {
		return core.NewValidationError(errEmailRequired, core.FieldError{Field: "email", Error: errEmailRequired.Error()})
	}
	return nil
}

// Apply copies the set fields onto usr.
func (uu UpdateUser) Apply(usr *User) {
	if uu.Name != nil {
		usr.Name = *uu.Name
	}
	if uu.Email != nil {
		usr.Email = *uu.Email
	}
	if uu.Phone != nil {
		usr.Phone = *uu.Phone
	}
	if uu.Address != nil {
		usr.Address = *uu.Address
	}
	if uu.Avatar != nil {
		usr.Avatar = *uu.Avatar
	}
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

// GetFilter selects a single User; the first non-empty field wins.
type GetFilter struct {
	ID    string
	Email string
}

// QueryFilter applies AND on its set fields.
type QueryFilter struct {
	IDs  []string
	Role Role
}
