package student

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

const maxRollNumberAttempts = 20

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("student not found")
	ErrRollNumberExists    = core.NewConflictError("a student with this roll number already exists")
	errRollNumberExhausted = errors.New("could not generate a unique roll number")
	errBlankField          = errors.New("this field may not be blank")

	rollNumberSuffix = randomSuffix // mockable
)

type (
	Repository interface {
		Create(ctx context.Context, st Student, exec ...core.DBExecutor) (Student, error)
		Get(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		// Query returns the page of students matching filter and the total number of matches.
		// Students are ordered by first name, last name.
		Query(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Student, int, error)
		RollNumberExists(ctx context.Context, rollNumber string, exec ...core.DBExecutor) (bool, error)
		Update(ctx context.Context, st Student, exec ...core.DBExecutor) (Student, error)
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

// Enroll creates an approved, unpaid Student with a freshly generated roll number.
func (svc *Service) Enroll(ctx context.Context, ns NewStudent, exec ...core.DBExecutor) (Student, error) {
	rollNumber, err := svc.generateRollNumber(ctx, ns.FirstName, ns.LastName, exec...)
	if err != nil {
		return Student{}, err
	}

	now := core.NowFunc().UTC()
	st := Student{
		ID:               uuid.NewString(),
		FirstName:        core.CleanString(ns.FirstName),
		LastName:         core.CleanString(ns.LastName),
		DateOfBirth:      ns.DateOfBirth,
		Gender:           ns.Gender,
		Address:          core.CleanString(ns.Address),
		AdmissionDate:    now,
		Grade:            core.CleanString(ns.Grade),
		Section:          core.CleanString(ns.Section),
		RollNumber:       rollNumber,
		ParentID:         ns.ParentID,
		AdmissionStatus:  core.AdmissionApproved,
		FeeStatus:        FeeUnpaid,
		EmergencyContact: ns.EmergencyContact,
		Avatar:           ns.Avatar,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return svc.repo.Create(ctx, st, exec...)
}

// generateRollNumber combines the initials of the student with a random 4-digit suffix,
// retrying until the store reports the value unused.
func (svc *Service) generateRollNumber(ctx context.Context, firstName, lastName string, exec ...core.DBExecutor) (string, error) {
	prefix := initial(firstName) + initial(lastName)
	for i := 0; i < maxRollNumberAttempts; i++ {
		suffix, err := rollNumberSuffix()
		if err != nil {
			return "", errors.Wrap(err, "generating roll number suffix")
		}
		rollNumber := fmt.Sprintf("%s%04d", prefix, suffix)

		exists, err := svc.repo.RollNumberExists(ctx, rollNumber, exec...)
		if err != nil {
			return "", errors.Wrap(err, "checking roll number")
		}
		if !exists {
			return rollNumber, nil
		}
	}
	return "", errRollNumberExhausted
}

func initial(name string) string {
	for _, r := range core.CleanString(name) {
		return string(unicode.ToUpper(r))
	}
	return ""
}

// randomSuffix returns a number in [1000, 9999].
func randomSuffix() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + 1000, nil
}

func (svc *Service) Get(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error) {
	return svc.repo.Get(ctx, id, exec...)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Student, int, error) {
	filter.Search = core.CleanString(filter.Search)
	filter.Grade = core.CleanString(filter.Grade)
	filter.Section = core.CleanString(filter.Section)
	return svc.repo.Query(ctx, filter)
}

// Roster returns every student of the given grade & section.
func (svc *Service) Roster(ctx context.Context, grade, section string, exec ...core.DBExecutor) ([]Student, error) {
	grade, section = core.CleanString(grade), core.CleanString(section)
	if grade == "" || section == "" {
		return nil, nil
	}
	students, _, err := svc.repo.Query(ctx, QueryFilter{Grade: grade, Section: section}, exec...)
	return students, err
}

func (svc *Service) ByParent(ctx context.Context, parentID string) ([]Student, error) {
	if parentID == "" {
		return nil, nil
	}
	students, _, err := svc.repo.Query(ctx, QueryFilter{ParentID: parentID})
	return students, err
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	st, err := svc.repo.Get(ctx, id)
	if err != nil {
		return Student{}, errors.Wrap(err, "finding student by ID")
	}
	if us.RollNumber != nil && !strings.EqualFold(*us.RollNumber, st.RollNumber) {
		exists, err := svc.repo.RollNumberExists(ctx, *us.RollNumber)
		if err != nil {
			return Student{}, errors.Wrap(err, "checking roll number")
		}
		if exists {
			return Student{}, ErrRollNumberExists
		}
	}
	us.Apply(&st)
	st.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.Update(ctx, st)
}

// Remove deletes the Student and, when it was the last one of its parent, the parent account too.
func (svc *Service) Remove(ctx context.Context, id string) (isLastStudent bool, err error) {
	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		st, err := svc.repo.Get(ctx, id, exec)
		if err != nil {
			return errors.Wrap(err, "finding student by ID")
		}
		if err = svc.repo.Delete(ctx, st.ID, exec); err != nil {
			return errors.Wrap(err, "deleting student")
		}

		_, remaining, err := svc.repo.Query(ctx, QueryFilter{ParentID: st.ParentID}, exec)
		if err != nil {
			return errors.Wrap(err, "counting siblings")
		}
		if remaining > 0 {
			return nil
		}
		isLastStudent = true

		parent, err := svc.userSvc.GetByID(ctx, st.ParentID, exec)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return nil
			}
			return errors.Wrap(err, "finding parent")
		}
		if !parent.IsParent() {
			return nil
		}
		return errors.Wrap(svc.userSvc.Delete(ctx, parent.ID, exec), "deleting parent")
	})
	return isLastStudent, err
}
