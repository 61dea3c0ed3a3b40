package teacher

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

type EmploymentType string

// Employment types
const (
	FullTime EmploymentType = "full-time"
	PartTime EmploymentType = "part-time"
	Contract EmploymentType = "contract"
)

func (et EmploymentType) IsValid() bool {
	switch et {
	case FullTime, PartTime, Contract:
		return true
	}
	return false
}

type Teacher struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	Designation    string         `json:"designation"`
	Qualifications []string       `json:"qualifications"`
	Subjects       []string       `json:"subjects"`
	Grades         []string       `json:"grades"`
	Sections       []string       `json:"sections"`
	JoiningDate    core.Date      `json:"joiningDate"`
	EmploymentType EmploymentType `json:"employmentType"`
	Salary         float64        `json:"salary"`
	CreatedAt      time.Time      `json:"createdAt"` // UTC
	UpdatedAt      time.Time      `json:"updatedAt"` // UTC

	User *user.User `json:"user,omitempty"`
}

// Assigned reports whether the Teacher teaches the given grade & section.
func (t Teacher) Assigned(grade, section string) bool {
	return contains(t.Grades, grade) && contains(t.Sections, section)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// NewTeacher contains information needed to create a Teacher along with its User account.
type NewTeacher struct {
	Name           string         `json:"name" validate:"required"`
	Email          string         `json:"email" validate:"required,email"`
	Phone          string         `json:"phone"`
	Address        string         `json:"address"`
	Designation    string         `json:"designation" validate:"required"`
	Qualifications []string       `json:"qualifications" validate:"notempty"`
	Subjects       []string       `json:"subjects" validate:"notempty"`
	Grades         []string       `json:"grades" validate:"notempty"`
	Sections       []string       `json:"sections" validate:"notempty"`
	JoiningDate    core.Date      `json:"joiningDate"`
	EmploymentType EmploymentType `json:"employmentType" validate:"required,employment_type"`
	Salary         float64        `json:"salary" validate:"gt=0"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Phone = core.CleanString(nt.Phone)
	nt.Address = core.CleanString(nt.Address)
	nt.Designation = core.CleanString(nt.Designation)
	nt.Qualifications = core.CleanStrings(nt.Qualifications)
	nt.Subjects = core.CleanStrings(nt.Subjects)
	nt.Grades = core.CleanStrings(nt.Grades)
	nt.Sections = core.CleanStrings(nt.Sections)
	return validate.Struct(nt)
}

// TeacherData holds the teacher fields an update may change. Nil fields are left unchanged.
type TeacherData struct {
	Designation    *string         `json:"designation"`
	Qualifications []string        `json:"qualifications" validate:"omitempty,notempty"`
	Subjects       []string        `json:"subjects" validate:"omitempty,notempty"`
	Grades         []string        `json:"grades" validate:"omitempty,notempty"`
	Sections       []string        `json:"sections" validate:"omitempty,notempty"`
	JoiningDate    *core.Date      `json:"joiningDate"`
	EmploymentType *EmploymentType `json:"employmentType" validate:"omitempty,employment_type"`
	Salary         *float64        `json:"salary"`
}

type UpdateTeacher struct {
	UserData    *user.UpdateUser `json:"userData"`
	TeacherData *TeacherData     `json:"teacherData"`
}

func (upd *UpdateTeacher) Validate(validate *validator.Validate) error {
	if upd.UserData == nil && upd.TeacherData == nil {
		return core.NewValidationError(errNothingToUpdate)
	}
	if upd.UserData != nil {
		if err := upd.UserData.Validate(validate); err != nil {
			return err
		}
	}
	if td := upd.TeacherData; td != nil {
		if err := validate.Struct(td); err != nil {
			return err
		}
		// provided lists are kept non-nil so that Apply replaces them
		clean := func(ss []string) []string {
			if ss == nil {
				return nil
			}
			return core.CleanStrings(ss)
		}
		td.Qualifications = clean(td.Qualifications)
		td.Subjects = clean(td.Subjects)
		td.Grades = clean(td.Grades)
		td.Sections = clean(td.Sections)

		var fldErrs []core.FieldError
		if td.Designation != nil {
			if *td.Designation = core.CleanString(*td.Designation); *td.Designation == "" {
				fldErrs = append(fldErrs, core.FieldError{Field: "teacherData.designation", Error: errBlankField.Error()})
			}
		}
		if td.JoiningDate != nil && td.JoiningDate.IsZero() {
			fldErrs = append(fldErrs, core.FieldError{Field: "teacherData.joiningDate", Error: errBlankField.Error()})
		}
		if td.Salary != nil && *td.Salary <= 0 {
			fldErrs = append(fldErrs, core.FieldError{Field: "teacherData.salary", Error: errInvalidSalary.Error()})
		}
		if fldErrs != nil {
			return core.NewValidationError(errInvalidTeacherData, fldErrs...)
		}
	}
	return nil
}

// Apply copies the set fields onto t.
func (td TeacherData) Apply(t *Teacher) {
	if td.Designation != nil {
		t.Designation = *td.Designation
	}
	if td.Qualifications != nil {
		t.Qualifications = td.Qualifications
	}
	if td.Subjects != nil {
		t.Subjects = td.Subjects
	}
	if td.Grades != nil {
		t.Grades = td.Grades
	}
	if td.Sections != nil {
		t.Sections = td.Sections
	}
	if td.JoiningDate != nil {
		t.JoiningDate = *td.JoiningDate
	}
	if td.EmploymentType != nil {
		t.EmploymentType = *td.EmploymentType
	}
	if td.Salary != nil {
		t.Salary = *td.Salary
	}
}

// GetFilter selects a single Teacher; the first non-empty field wins.
type GetFilter struct {
	ID     string
	UserID string
}

// QueryFilter applies AND on its set fields.
// Search does a case-insensitive match on one of the user name or email, Designation, Subjects or Grades.
type QueryFilter struct {
	Search   string
	Grade    string
	Section  string
	Page     *core.Pagination
	Ordering core.DBOrdering
}

// sortable fields: {query param: column}
var SortFields = map[string]string{
	"createdAt":      "created_at",
	"joiningDate":    "joining_date",
	"designation":    "designation",
	"employmentType": "employment_type",
	"salary":         "salary",
}

// NewOrdering validates the sortField / sortOrder query parameters; defaults to newest first.
func NewOrdering(sortField, sortOrder string) core.DBOrdering {
	col, ok := SortFields[sortField]
	if !ok {
		return core.DBOrdering{Field: "created_at"}
	}
	return core.DBOrdering{Field: col, Ascending: sortOrder == "asc"}
}
