package admission

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

type Status = core.AdmissionStatus

// Statuses
const (
	StatusPending    = core.AdmissionPending
	StatusApproved   = core.AdmissionApproved
	StatusRejected   = core.AdmissionRejected
	StatusWaitlisted = core.AdmissionWaitlisted
	StatusCancelled  = core.AdmissionCancelled
)

type (
	StudentInfo struct {
		FirstName   string      `json:"firstName" validate:"required"`
		LastName    string      `json:"lastName" validate:"required"`
		DateOfBirth core.Date   `json:"dateOfBirth"`
		Gender      core.Gender `json:"gender" validate:"required,gender"`
		Grade       string      `json:"grade" validate:"required"`
	}

	ParentInfo struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Phone    string `json:"phone" validate:"required"`
		Relation string `json:"relation" validate:"required"`
	}

	// Request is an admission application awaiting (or having received) a decision.
	Request struct {
		ID               string                `json:"id"`
		StudentInfo      StudentInfo           `json:"studentInfo"`
		ParentInfo       ParentInfo            `json:"parentInfo"`
		EmergencyContact core.EmergencyContact `json:"emergencyContact"`
		Address          string                `json:"address"`
		Status           Status                `json:"status"`
		ApplicationDate  time.Time             `json:"applicationDate"` // UTC
		Comments         string                `json:"comments,omitempty"`
		ReviewedBy       string                `json:"reviewedBy,omitempty"`
		ReviewDate       *time.Time            `json:"reviewDate,omitempty"` // UTC
		CreatedAt        time.Time             `json:"createdAt"`            // UTC
		UpdatedAt        time.Time             `json:"updatedAt"`            // UTC
	}
)

// NewApplication contains information needed to submit an admission Request.
type NewApplication struct {
	StudentInfo      StudentInfo           `json:"studentInfo"`
	ParentInfo       ParentInfo            `json:"parentInfo"`
	EmergencyContact core.EmergencyContact `json:"emergencyContact"`
	Address          string                `json:"address" validate:"required"`
}

func (na *NewApplication) Validate(validate *validator.Validate) error {
	si, pi := &na.StudentInfo, &na.ParentInfo
	si.FirstName = core.CleanString(si.FirstName)
	si.LastName = core.CleanString(si.LastName)
	si.Grade = core.CleanString(si.Grade)
	pi.Name = core.CleanString(pi.Name)
	pi.Email = core.CleanString(pi.Email, true /* lower */)
	pi.Phone = core.CleanString(pi.Phone)
	pi.Relation = core.CleanString(pi.Relation)
	na.EmergencyContact.Clean()
	na.Address = core.CleanString(na.Address)
	return validate.Struct(na)
}

// ReviewRequest is an admin decision on a pending Request.
type ReviewRequest struct {
	Status   Status `json:"status"`
	Comments string `json:"comments"`
	Section  string `json:"section"`
}

// Validate checks the decision on its own, before anything is read or written.
func (rv *ReviewRequest) Validate() error {
	rv.Comments = core.CleanString(rv.Comments)
	rv.Section = core.CleanString(rv.Section)

	if !rv.Status.IsTerminal() {
		return core.NewValidationError(errInvalidStatus, core.FieldError{Field: "status", Error: errInvalidStatus.Error()})
	}
	if rv.Status == StatusApproved && rv.Section == "" {
		return core.NewValidationError(errSectionRequired, core.FieldError{Field: "section", Error: errSectionRequired.Error()})
	}
	return nil
}

// Decision is what a review persists onto a pending Request.
type Decision struct {
	Status     Status
	Comments   string
	ReviewedBy string
	ReviewDate time.Time
}

// ReviewResult holds the reviewed Request, plus the enrolled Student and its parent on approval.
type ReviewResult struct {
	Application Request          `json:"application"`
	Student     *student.Student `json:"student,omitempty"`
	Parent      *user.User       `json:"parent,omitempty"`
}

// QueryFilter applies AND on its set fields.
// Search does a case-insensitive match on one of the student first or last name, the parent name or email.
type QueryFilter struct {
	Status    Status
	Search    string
	Ascending bool // by ApplicationDate
	Page      core.Pagination
}

// DuplicateFilter matches the live (pending or approved) applications of the same student.
type DuplicateFilter struct {
	FirstName   string
	LastName    string
	ParentEmail string
}
