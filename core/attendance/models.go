package attendance

import (
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/teacher"
)

type Status string

// Statuses
const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
	StatusLate    Status = "LATE"
	StatusHalfDay Status = "HALF_DAY"
	StatusLeave   Status = "LEAVE"
)

var AllStatuses = []Status{StatusPresent, StatusAbsent, StatusLate, StatusHalfDay, StatusLeave}

func (s Status) IsValid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusHalfDay, StatusLeave:
		return true
	}
	return false
}

// Attendance is the status of one student on one calendar day; (StudentID, Date) is unique.
type Attendance struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	Date      core.Date `json:"date"`
	Status    Status    `json:"status"`
	MarkedBy  string    `json:"markedBy,omitempty"`
	Remarks   string    `json:"remarks"`
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC

	Student *StudentRef `json:"student,omitempty"`
}

// StudentRef is the summary of a student embedded in attendance listings.
type StudentRef struct {
	ID         string `json:"id"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	RollNumber string `json:"rollNumber"`
	Grade      string `json:"grade"`
	Section    string `json:"section"`
}

func newStudentRef(st student.Student) *StudentRef {
	return &StudentRef{
		ID:         st.ID,
		FirstName:  st.FirstName,
		LastName:   st.LastName,
		RollNumber: st.RollNumber,
		Grade:      st.Grade,
		Section:    st.Section,
	}
}

type (
	Record struct {
		StudentID string `json:"studentId"`
		Status    Status `json:"status"`
		Remarks   string `json:"remarks"`
	}

	// MarkAttendance is a teacher's batch of today's statuses for one grade & section.
	MarkAttendance struct {
		Grade   string   `json:"grade"`
		Section string   `json:"section"`
		Records []Record `json:"attendanceRecords"`
	}

	MarkStats struct {
		Inserted int `json:"inserted"`
		Updated  int `json:"updated"`
		Total    int `json:"total"`
	}

	MarkResult struct {
		Date    core.Date    `json:"date"`
		Records []Attendance `json:"records"`
		Stats   MarkStats    `json:"stats"`
	}
)

func (m *MarkAttendance) Validate() error {
	m.Grade = core.CleanString(m.Grade)
	m.Section = core.CleanString(m.Section)

	var fldErrs []core.FieldError
	if m.Records == nil {
		fldErrs = append(fldErrs, core.FieldError{Field: "attendanceRecords", Error: errRecordsRequired.Error()})
	}
	if m.Grade == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "grade", Error: errGradeRequired.Error()})
	}
	if m.Section == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "section", Error: errSectionRequired.Error()})
	}
	if fldErrs != nil {
		return core.NewValidationError(errInvalidBatch, fldErrs...)
	}
	for i := range m.Records {
		m.Records[i].StudentID = core.CleanString(m.Records[i].StudentID)
		m.Records[i].Remarks = core.CleanString(m.Records[i].Remarks)
	}
	return nil
}

// StatusCounts holds the number of rows per status; every status is present.
type StatusCounts map[Status]int

func countStatuses(rows []Attendance) StatusCounts {
	counts := make(StatusCounts, len(AllStatuses))
	for _, s := range AllStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status]++
	}
	return counts
}

type (
	Summary struct {
		Total        int          `json:"total"`
		StatusCounts StatusCounts `json:"statusCounts"`
	}

	SectionStats struct {
		Total        int          `json:"total"` // students
		Dates        int          `json:"dates"`
		StatusCounts StatusCounts `json:"statusCounts"`
	}

	SectionReport struct {
		AttendanceByDate map[string][]Attendance `json:"attendanceByDate"`
		Students         []student.Student       `json:"students"`
		Stats            SectionStats            `json:"stats"`
	}

	StudentReport struct {
		Student    student.Student `json:"student"`
		Attendance []Attendance    `json:"attendance"`
		Stats      Summary         `json:"stats"`
	}

	// TeacherReport groups the rows a teacher marked by date, then by "grade-section".
	TeacherReport struct {
		Teacher    teacher.Teacher                    `json:"teacher"`
		Attendance map[string]map[string][]Attendance `json:"attendance"`
		Pagination core.PageInfo                      `json:"pagination"`
	}

	TeacherQuery struct {
		Range   core.DateRange
		Grade   string
		Section string
		Page    core.Pagination
	}

	SectionProgress struct {
		Grade            string `json:"grade"`
		Section          string `json:"section"`
		TotalStudents    int    `json:"totalStudents"`
		AttendanceMarked int    `json:"attendanceMarked"`
		IsComplete       bool   `json:"isComplete"`
		Progress         int    `json:"progress"` // %
	}

	ParentReport struct {
		Children       []student.Student `json:"children"`
		AttendanceData []StudentReport   `json:"attendanceData"`
	}
)

// QueryFilter applies AND on its set fields; rows are ordered by date then student.
type QueryFilter struct {
	StudentIDs []string // nil matches every student, empty matches none
	MarkedBy   string
	Range      core.DateRange
	Descending bool
	Page       *core.Pagination
}
