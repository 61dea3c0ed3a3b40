package admission

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("application not found")
	ErrDuplicate       = core.NewConflictError("an application for this student is already submitted")
	ErrAlreadyReviewed = core.NewConflictError("application has already been reviewed")

	errInvalidStatus   = errors.New("status must be one of APPROVED, REJECTED, WAITLISTED or CANCELLED")
	errSectionRequired = errors.New("section is required for approved applications")
)

type (
	Repository interface {
		Create(ctx context.Context, req Request, exec ...core.DBExecutor) (Request, error)
		Get(ctx context.Context, id string, exec ...core.DBExecutor) (Request, error)
		// Query returns the page of requests matching filter and the total number of matches.
		Query(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Request, int, error)
		// HasLive reports whether a pending or approved application matches filter.
		HasLive(ctx context.Context, filter DuplicateFilter, exec ...core.DBExecutor) (bool, error)
		// Decide persists d onto the Request only while it is still pending,
		// failing with ErrAlreadyReviewed when another review got there first.
		Decide(ctx context.Context, id string, d Decision, exec ...core.DBExecutor) (Request, error)
	}

	Service struct {
		repo       Repository
		userSvc    *user.Service
		studentSvc *student.Service
		tx         core.Transactor
		events     core.EventPublisher
		logger     core.Logger
	}

	reviewedEvent struct {
		ApplicationID string `json:"applicationId"`
		Status        Status `json:"status"`
		ReviewedBy    string `json:"reviewedBy"`
		StudentID     string `json:"studentId,omitempty"`
		ParentID      string `json:"parentId,omitempty"`
		NewParent     bool   `json:"newParent,omitempty"`
	}
)

func NewService(
	repo Repository,
	userSvc *user.Service,
	studentSvc *student.Service,
	tx core.Transactor,
	events core.EventPublisher,
	logger core.Logger,
) *Service {
	return &Service{
		repo:       repo,
		userSvc:    userSvc,
		studentSvc: studentSvc,
		tx:         tx,
		events:     events,
		logger:     logger,
	}
}

// Submit files a new pending application, refusing a second live application for the same student.
func (svc *Service) Submit(ctx context.Context, na NewApplication) (Request, error) {
	dup, err := svc.repo.HasLive(ctx, DuplicateFilter{
		FirstName:   na.StudentInfo.FirstName,
		LastName:    na.StudentInfo.LastName,
		ParentEmail: na.ParentInfo.Email,
	})
	if err != nil {
		return Request{}, errors.Wrap(err, "checking duplicate applications")
	}
	if dup {
		return Request{}, ErrDuplicate
	}

	now := core.NowFunc().UTC()
	na.StudentInfo.DateOfBirth = core.NewDate(na.StudentInfo.DateOfBirth.Time)
	return svc.repo.Create(ctx, Request{
		ID:               uuid.NewString(),
		StudentInfo:      na.StudentInfo,
		ParentInfo:       na.ParentInfo,
		EmergencyContact: na.EmergencyContact,
		Address:          na.Address,
		Status:           StatusPending,
		ApplicationDate:  now,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Request, error) {
	return svc.repo.Get(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Request, int, error) {
	if filter.Status == "" {
		filter.Status = StatusPending
	}
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.Query(ctx, filter)
}

// Review moves a pending application to a terminal status. On approval the parent account is
// found or created and the student enrolled, all in the same transaction as the status change.
func (svc *Service) Review(ctx context.Context, id string, rv ReviewRequest, reviewer user.User) (ReviewResult, error) {
	if err := rv.Validate(); err != nil {
		return ReviewResult{}, err
	}

	req, err := svc.repo.Get(ctx, id)
	if err != nil {
		return ReviewResult{}, err
	}
	if req.Status != StatusPending {
		return ReviewResult{}, alreadyReviewed(req.Status)
	}

	var (
		res      ReviewResult
		password string
	)
	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		decided, err := svc.repo.Decide(ctx, id, Decision{
			Status:     rv.Status,
			Comments:   rv.Comments,
			ReviewedBy: reviewer.ID,
			ReviewDate: core.NowFunc().UTC(),
		}, exec)
		if err != nil {
			return err
		}
		res.Application = decided
		if rv.Status != StatusApproved {
			return nil
		}

		parent, pwd, err := svc.userSvc.Provision(ctx, user.NewAccount{
			Name:    decided.ParentInfo.Name,
			Email:   decided.ParentInfo.Email,
			Role:    user.RoleParent,
			Phone:   decided.ParentInfo.Phone,
			Address: decided.Address,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "provisioning parent")
		}

		st, err := svc.studentSvc.Enroll(ctx, student.NewStudent{
			FirstName:        decided.StudentInfo.FirstName,
			LastName:         decided.StudentInfo.LastName,
			DateOfBirth:      decided.StudentInfo.DateOfBirth,
			Gender:           decided.StudentInfo.Gender,
			Address:          decided.Address,
			Grade:            decided.StudentInfo.Grade,
			Section:          rv.Section,
			ParentID:         parent.ID,
			EmergencyContact: decided.EmergencyContact,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "enrolling student")
		}

		res.Parent, res.Student, password = &parent, &st, pwd
		return nil
	})
	if err != nil {
		return ReviewResult{}, err
	}

	evt := reviewedEvent{ApplicationID: id, Status: rv.Status, ReviewedBy: reviewer.ID}
	if res.Student != nil {
		evt.StudentID, evt.ParentID, evt.NewParent = res.Student.ID, res.Parent.ID, password != ""
	}
	if password != "" {
		svc.userSvc.SendCredentials(*res.Parent, password)
	}
	core.PublishEvent(ctx, svc.events, svc.logger, core.EventAdmissionReviewed, evt)
	return res, nil
}

func alreadyReviewed(status Status) error {
	return core.NewConflictError(fmt.Sprintf("application is already %s", strings.ToLower(string(status))))
}
