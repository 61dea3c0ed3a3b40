package teacher

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("teacher not found")
	ErrNotAssigned = core.NewPermissionError("you are not assigned to this grade and section")

	errNothingToUpdate    = errors.New("one of userData or teacherData is required")
	errInvalidTeacherData = errors.New("invalid teacher data")
	errBlankField         = errors.New("this field may not be blank")
	errInvalidSalary      = errors.New("salary must be greater than 0")
)

type (
	Repository interface {
		Create(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
		Get(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Teacher, error)
		// Query returns the page of teachers matching filter and the total number of matches.
		Query(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Teacher, int, error)
		Update(ctx context.Context, t Teacher, exec ...core.DBExecutor) (Teacher, error)
		Delete(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo    Repository
		userSvc *user.Service
		tx      core.Transactor
	}
)

func NewService(repo Repository, userSvc *user.Service, tx core.Transactor) *Service {
	return &Service{repo: repo, userSvc: userSvc, tx: tx}
}

// Add creates the teacher's User account and profile in one transaction;
// the account's temporary password is mailed once committed.
func (svc *Service) Add(ctx context.Context, nt NewTeacher) (Teacher, error) {
	if _, err := svc.userSvc.GetByEmail(ctx, nt.Email); err == nil {
		return Teacher{}, user.ErrEmailExists
	} else if errors.Cause(err) != user.ErrNotFound {
		return Teacher{}, errors.Wrap(err, "finding user by email")
	}

	var (
		t        Teacher
		usr      user.User
		password string
	)
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		usr, password, err = svc.userSvc.Provision(ctx, user.NewAccount{
			Name:    nt.Name,
			Email:   nt.Email,
			Role:    user.RoleTeacher,
			Phone:   nt.Phone,
			Address: nt.Address,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "provisioning user")
		}

		now := core.NowFunc().UTC()
		t, err = svc.repo.Create(ctx, Teacher{
			ID:             uuid.NewString(),
			UserID:         usr.ID,
			Designation:    nt.Designation,
			Qualifications: nt.Qualifications,
			Subjects:       nt.Subjects,
			Grades:         nt.Grades,
			Sections:       nt.Sections,
			JoiningDate:    core.NewDate(nt.JoiningDate.Time),
			EmploymentType: nt.EmploymentType,
			Salary:         nt.Salary,
			CreatedAt:      now,
			UpdatedAt:      now,
		}, exec)
		return errors.Wrap(err, "creating teacher")
	})
	if err != nil {
		return Teacher{}, err
	}

	if password != "" {
		svc.userSvc.SendCredentials(usr, password)
	}
	t.User = &usr
	return t, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Teacher, error) {
	t, err := svc.repo.Get(ctx, GetFilter{ID: id})
	if err != nil {
		return Teacher{}, err
	}
	return svc.withUser(ctx, t)
}

// GetByUser returns the teacher profile of usr.
func (svc *Service) GetByUser(ctx context.Context, usr user.User) (Teacher, error) {
	t, err := svc.repo.Get(ctx, GetFilter{UserID: usr.ID})
	if err != nil {
		return Teacher{}, err
	}
	t.User = &usr
	return t, nil
}

func (svc *Service) GetByUserID(ctx context.Context, userID string) (Teacher, error) {
	return svc.repo.Get(ctx, GetFilter{UserID: userID})
}

func (svc *Service) withUser(ctx context.Context, t Teacher) (Teacher, error) {
	usr, err := svc.userSvc.GetByID(ctx, t.UserID)
	if err != nil {
		return Teacher{}, errors.Wrap(err, "finding teacher user")
	}
	t.User = &usr
	return t, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Teacher, int, error) {
	filter.Search = core.CleanString(filter.Search)
	teachers, total, err := svc.repo.Query(ctx, filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying teachers")
	}
	if len(teachers) == 0 {
		return teachers, total, nil
	}

	ids := make([]string, 0, len(teachers))
	for _, t := range teachers {
		ids = append(ids, t.UserID)
	}
	users, err := svc.userSvc.Query(ctx, user.QueryFilter{IDs: ids})
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying teacher users")
	}
	byID := make(map[string]user.User, len(users))
	for _, usr := range users {
		byID[usr.ID] = usr
	}
	for i := range teachers {
		if usr, ok := byID[teachers[i].UserID]; ok {
			teachers[i].User = &usr
		}
	}
	return teachers, total, nil
}

// Update applies the user and teacher changes in one transaction.
func (svc *Service) Update(ctx context.Context, id string, upd UpdateTeacher) (Teacher, error) {
	var t Teacher
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if t, err = svc.repo.Get(ctx, GetFilter{ID: id}, exec); err != nil {
			return errors.Wrap(err, "finding teacher by ID")
		}

		if upd.UserData != nil {
			usr, err := svc.userSvc.Update(ctx, t.UserID, *upd.UserData, exec)
			if err != nil {
				return errors.Wrap(err, "updating teacher user")
			}
			t.User = &usr
		}
		if upd.TeacherData != nil {
			usr := t.User
			upd.TeacherData.Apply(&t)
			t.UpdatedAt = core.NowFunc().UTC()
			if t, err = svc.repo.Update(ctx, t, exec); err != nil {
				return errors.Wrap(err, "updating teacher")
			}
			t.User = usr
		}
		return nil
	})
	if err != nil {
		return Teacher{}, err
	}
	if t.User == nil {
		return svc.withUser(ctx, t)
	}
	return t, nil
}

// Remove deletes the teacher and its User account in one transaction.
func (svc *Service) Remove(ctx context.Context, id string) error {
	return svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		t, err := svc.repo.Get(ctx, GetFilter{ID: id}, exec)
		if err != nil {
			return errors.Wrap(err, "finding teacher by ID")
		}
		if err = svc.repo.Delete(ctx, t.ID, exec); err != nil {
			return errors.Wrap(err, "deleting teacher")
		}
		return errors.Wrap(svc.userSvc.Delete(ctx, t.UserID, exec), "deleting teacher user")
	})
}

// EnsureAssigned returns the teacher profile of usr once it is verified to teach grade & section.
func (svc *Service) EnsureAssigned(ctx context.Context, usr user.User, grade, section string) (Teacher, error) {
	t, err := svc.repo.Get(ctx, GetFilter{UserID: usr.ID})
	if err != nil {
		return Teacher{}, err
	}
	if !t.Assigned(grade, section) {
		return Teacher{}, ErrNotAssigned
	}
	return t, nil
}
