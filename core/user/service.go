package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("user not found")
	ErrEmailExists        = core.NewConflictError("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDeactivated = core.NewPermissionError("account deactivated")

	errNameRequired  = errors.New("name is required")
	errEmailRequired = errors.New("email is required")
)

type (
	Repository interface {
		Create(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		Get(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		Query(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]User, error)
		Update(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		Delete(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

func (svc *Service) Create(ctx context.Context, nu NewUser, exec ...core.DBExecutor) (User, error) {
	now := core.NowFunc().UTC()
	usr := User{
		ID:              uuid.NewString(),
		Name:            nu.Name,
		Email:           core.CleanString(nu.Email, true /* lower */),
		Role:            nu.Role,
		Phone:           nu.Phone,
		Address:         nu.Address,
		IsActive:        true,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.Create(ctx, usr, exec...)
}

// Provision returns the User owning na.Email, creating it with a random temporary password when none exists.
// `password` is only set when the User was created.
func (svc *Service) Provision(ctx context.Context, na NewAccount, exec ...core.DBExecutor) (usr User, password string, err error) {
	email := core.CleanString(na.Email, true /* lower */)
	usr, err = svc.repo.Get(ctx, GetFilter{Email: email}, exec...)
	if err == nil {
		return usr, "", nil
	}
	if errors.Cause(err) != ErrNotFound {
		return User{}, "", errors.Wrap(err, "finding user by email")
	}

	password, err = GenerateTempPassword()
	if err != nil {
		return User{}, "", errors.Wrap(err, "generating temporary password")
	}

	now := core.NowFunc().UTC()
	usr = User{
		ID:        uuid.NewString(),
		Name:      core.CleanString(na.Name),
		Email:     email,
		Role:      na.Role,
		Phone:     core.CleanString(na.Phone),
		Address:   core.CleanString(na.Address),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = usr.SetPassword(password); err != nil {
		return User{}, "", errors.Wrap(err, "hashing password")
	}
	if usr, err = svc.repo.Create(ctx, usr, exec...); err != nil {
		return User{}, "", errors.Wrap(err, "creating user")
	}
	return usr, password, nil
}

func (svc *Service) GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (User, error) {
	return svc.repo.Get(ctx, GetFilter{ID: id}, exec...)
}

func (svc *Service) GetByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (User, error) {
	return svc.repo.Get(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)}, exec...)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]User, error) {
	return svc.repo.Query(ctx, filter)
}

// Authenticate checks the given credentials and records the login time.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	return svc.SetLastLogin(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := core.NowFunc().UTC().Truncate(time.Microsecond)
	usr.LastLogin = &now
	return svc.repo.Update(ctx, usr)
}

// Update applies uu on the User identified by id, email uniqueness included.
func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser, exec ...core.DBExecutor) (User, error) {
	usr, err := svc.repo.Get(ctx, GetFilter{ID: id}, exec...)
	if err != nil {
		return User{}, errors.Wrap(err, "finding user by ID")
	}
	if uu.Email != nil && *uu.Email != usr.Email {
		other, err := svc.repo.Get(ctx, GetFilter{Email: *uu.Email}, exec...)
		if err == nil && other.ID != usr.ID {
			return User{}, ErrEmailExists
		} else if err != nil && errors.Cause(err) != ErrNotFound {
			return User{}, errors.Wrap(err, "finding user by email")
		}
	}
	uu.Apply(&usr)
	usr.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.Update(ctx, usr, exec...)
}

func (svc *Service) Delete(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return svc.repo.Delete(ctx, id, exec...)
}

// SendCredentials mails a freshly provisioned account its temporary password.
func (svc *Service) SendCredentials(usr User, password string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your account",
		TemplateName: "account_credentials",
		TemplateData: map[string]string{
			"Name":     usr.Name,
			"Email":    usr.Email,
			"Password": password,
		},
	})
}

func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	token, err := MakeToken(svc.conf, usr)
	if err != nil {
		return errors.Wrap(err, "making token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": token,
		},
	})
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error) {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return User{}, core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, core.NewValidationError(errInvalidToken)
		}
		return User{}, errors.Wrap(err, "finding user by ID")
	}
	if err = verifyToken(svc.conf, usr, rp.Token); err != nil {
		return User{}, core.NewValidationError(err)
	}
	if err = checkPassword(rp.Password, usr.Name, usr.Email); err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	// the reset link proves ownership of the mailbox
	usr.IsEmailVerified = true
	usr.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.Update(ctx, usr)
}
