package student

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

type FeeStatus string

// Fee statuses
const (
	FeePaid   FeeStatus = "PAID"
	FeeUnpaid FeeStatus = "UNPAID"
	FeeWaived FeeStatus = "WAIVED"
)

func (s FeeStatus) IsValid() bool {
	switch s {
	case FeePaid, FeeUnpaid, FeeWaived:
		return true
	}
	return false
}

type Student struct {
	ID               string                `json:"id"`
	FirstName        string                `json:"firstName"`
	LastName         string                `json:"lastName"`
	DateOfBirth      core.Date             `json:"dateOfBirth"`
	Gender           core.Gender           `json:"gender"`
	Address          string                `json:"address"`
	AdmissionDate    time.Time             `json:"admissionDate"` // UTC
	Grade            string                `json:"grade"`
	Section          string                `json:"section"`
	RollNumber       string                `json:"rollNumber"`
	ParentID         string                `json:"parentId"`
	AdmissionStatus  core.AdmissionStatus  `json:"admissionStatus"`
	FeeStatus        FeeStatus             `json:"feeStatus"`
	EmergencyContact core.EmergencyContact `json:"emergencyContact"`
	Avatar           string                `json:"avatar"`
	CreatedAt        time.Time             `json:"createdAt"` // UTC
	UpdatedAt        time.Time             `json:"updatedAt"` // UTC
}

func (st Student) FullName() string {
	return st.FirstName + " " + st.LastName
}

// VisibleTo reports whether usr may read the Student: parents only see their own children.
func (st Student) VisibleTo(usr user.User) bool {
	if usr.IsParent() {
		return st.ParentID == usr.ID
	}
	return true
}

// NewStudent contains information needed to enroll a Student. The roll number is generated.
type NewStudent struct {
	FirstName        string
	LastName         string
	DateOfBirth      core.Date
	Gender           core.Gender
	Address          string
	Grade            string
	Section          string
	ParentID         string
	EmergencyContact core.EmergencyContact
	Avatar           string
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Nil fields are left unchanged.
type UpdateStudent struct {
	FirstName        *string                `json:"firstName"`
	LastName         *string                `json:"lastName"`
	DateOfBirth      *core.Date             `json:"dateOfBirth"`
	Gender           *core.Gender           `json:"gender" validate:"omitempty,gender"`
	Address          *string                `json:"address"`
	Grade            *string                `json:"grade"`
	Section          *string                `json:"section"`
	RollNumber       *string                `json:"rollNumber"`
	AdmissionStatus  *core.AdmissionStatus  `json:"admissionStatus" validate:"omitempty,admission_status"`
	FeeStatus        *FeeStatus             `json:"feeStatus" validate:"omitempty,fee_status"`
	EmergencyContact *core.EmergencyContact `json:"emergencyContact"`
	Avatar           *string                `json:"avatar"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	for _, s := range []*string{us.FirstName, us.LastName, us.Address, us.Grade, us.Section, us.RollNumber, us.Avatar} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	if us.RollNumber != nil {
		*us.RollNumber = strings.ToUpper(*us.RollNumber)
	}
	if us.EmergencyContact != nil {
		us.EmergencyContact.Clean()
	}
	if err := validate.Struct(us); err != nil {
		return err
	}

	var fldErrs []core.FieldError
	for fld, s := range map[string]*string{
		"firstName":  us.FirstName,
		"lastName":   us.LastName,
		"address":    us.Address,
		"grade":      us.Grade,
		"section":    us.Section,
		"rollNumber": us.RollNumber,
	} {
		if s != nil && *s == "" {
			fldErrs = append(fldErrs, core.FieldError{Field: fld, Error: errBlankField.Error()})
		}
	}
	if us.DateOfBirth != nil && us.DateOfBirth.IsZero() {
		fldErrs = append(fldErrs, core.FieldError{Field: "dateOfBirth", Error: errBlankField.Error()})
	}
	if fldErrs != nil {
		return core.NewValidationError(errBlankField, fldErrs...)
	}
	return nil
}

// Apply copies the set fields onto st.
func (us UpdateStudent) Apply(st *Student) {
	if us.FirstName != nil {
		st.FirstName = *us.FirstName
	}
	if us.LastName != nil {
		st.LastName = *us.LastName
	}
	if us.DateOfBirth != nil {
		st.DateOfBirth = *us.DateOfBirth
	}
	if us.Gender != nil {
		st.Gender = *us.Gender
	}
	if us.Address != nil {
		st.Address = *us.Address
	}
	if us.Grade != nil {
		st.Grade = *us.Grade
	}
	if us.Section != nil {
		st.Section = *us.Section
	}
	if us.RollNumber != nil {
		st.RollNumber = *us.RollNumber
	}
	if us.AdmissionStatus != nil {
		st.AdmissionStatus = *us.AdmissionStatus
	}
	if us.FeeStatus != nil {
		st.FeeStatus = *us.FeeStatus
	}
	if us.EmergencyContact != nil {
		st.EmergencyContact = *us.EmergencyContact
	}
	if us.Avatar != nil {
		st.Avatar = *us.Avatar
	}
}

// QueryFilter applies AND on its set fields.
// Search does a case-insensitive match on one of FirstName, LastName or RollNumber.
type QueryFilter struct {
	Search   string
	Grade    string
	Section  string
	ParentID string
	IDs      []string
	Page     *core.Pagination
}
