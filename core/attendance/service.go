package attendance

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
)

const TeacherPageLimit = 50

var (
	// errors
	ErrEmptySection     = core.NewNotFoundError("no students found in this section")
	ErrNothingProcessed = core.NewValidationError(errors.New("No attendance records were processed"))
	ErrNotYourChild     = core.NewPermissionError("you are not authorized to view this student's attendance")
	ErrNotYourRecords   = core.NewPermissionError("you can only view attendance records you've marked")

	errInvalidBatch    = errors.New("invalid attendance batch")
	errRecordsRequired = errors.New("attendance records are required and must be a list")
	errGradeRequired   = errors.New("grade is required")
	errSectionRequired = errors.New("section is required")
	errNotInSection    = errors.New("student not found in this section")
	errInvalidStatus   = errors.New("invalid attendance status")
	errDuplicateRecord = errors.New("student is listed more than once")
)

type (
	Repository interface {
		Query(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Attendance, int, error)
		// BulkWrite applies every insert & update as one batch. An insert colliding with an existing
		// (StudentID, Date) row overwrites that row instead and is counted as an update.
		BulkWrite(ctx context.Context, inserts, updates []Attendance, exec ...core.DBExecutor) (inserted, updated int, err error)
	}

	Service struct {
		repo       Repository
		studentSvc *student.Service
		teacherSvc *teacher.Service
		tx         core.Transactor
		events     core.EventPublisher
		logger     core.Logger
	}

	markedEvent struct {
		Grade    string    `json:"grade"`
		Section  string    `json:"section"`
		Date     core.Date `json:"date"`
		MarkedBy string    `json:"markedBy"`
		Inserted int       `json:"inserted"`
		Updated  int       `json:"updated"`
	}
)

func NewService(
	repo Repository,
	studentSvc *student.Service,
	teacherSvc *teacher.Service,
	tx core.Transactor,
	events core.EventPublisher,
	logger core.Logger,
) *Service {
	return &Service{
		repo:       repo,
		studentSvc: studentSvc,
		teacherSvc: teacherSvc,
		tx:         tx,
		events:     events,
		logger:     logger,
	}
}

// Mark records today's status of every listed student of the grade & section, keeping exactly one row
// per student and day: existing rows are overwritten, missing ones inserted.
// The batch is rejected as a whole when any record is invalid.
func (svc *Service) Mark(ctx context.Context, marker user.User, m MarkAttendance) (MarkResult, error) {
	if err := m.Validate(); err != nil {
		return MarkResult{}, err
	}
	if _, err := svc.teacherSvc.EnsureAssigned(ctx, marker, m.Grade, m.Section); err != nil {
		return MarkResult{}, err
	}

	roster, err := svc.studentSvc.Roster(ctx, m.Grade, m.Section)
	if err != nil {
		return MarkResult{}, errors.Wrap(err, "loading roster")
	}
	if len(roster) == 0 {
		return MarkResult{}, ErrEmptySection
	}
	students := make(map[string]student.Student, len(roster))
	studentIDs := make([]string, 0, len(roster))
	for _, st := range roster {
		students[st.ID] = st
		studentIDs = append(studentIDs, st.ID)
	}

	if err = validateRecords(m.Records, students); err != nil {
		return MarkResult{}, err
	}
	if len(m.Records) == 0 {
		return MarkResult{}, ErrNothingProcessed
	}

	today := core.NewDate(core.Today())
	todayRange := core.DateRange{From: today.Time, To: today.Time}
	existing, _, err := svc.repo.Query(ctx, QueryFilter{StudentIDs: studentIDs, Range: todayRange})
	if err != nil {
		return MarkResult{}, errors.Wrap(err, "loading today's attendance")
	}
	byStudent := make(map[string]Attendance, len(existing))
	for _, row := range existing {
		byStudent[row.StudentID] = row
	}

	now := core.NowFunc().UTC()
	var inserts, updates []Attendance
	for _, rec := range m.Records {
		if row, ok := byStudent[rec.StudentID]; ok {
			row.Status, row.Remarks, row.MarkedBy, row.UpdatedAt = rec.Status, rec.Remarks, marker.ID, now
			updates = append(updates, row)
			continue
		}
		inserts = append(inserts, Attendance{
			ID:        uuid.NewString(),
			StudentID: rec.StudentID,
			Date:      today,
			Status:    rec.Status,
			MarkedBy:  marker.ID,
			Remarks:   rec.Remarks,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	var stats MarkStats
	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		stats.Inserted, stats.Updated, err = svc.repo.BulkWrite(ctx, inserts, updates, exec)
		return err
	})
	if err != nil {
		return MarkResult{}, errors.Wrap(err, "writing attendance")
	}

	rows, _, err := svc.repo.Query(ctx, QueryFilter{StudentIDs: studentIDs, Range: todayRange})
	if err != nil {
		return MarkResult{}, errors.Wrap(err, "reloading today's attendance")
	}
	for i := range rows {
		rows[i].Student = newStudentRef(students[rows[i].StudentID])
	}
	stats.Total = len(rows)

	core.PublishEvent(ctx, svc.events, svc.logger, core.EventAttendanceMarked, markedEvent{
		Grade:    m.Grade,
		Section:  m.Section,
		Date:     today,
		MarkedBy: marker.ID,
		Inserted: stats.Inserted,
		Updated:  stats.Updated,
	})
	return MarkResult{Date: today, Records: rows, Stats: stats}, nil
}

// validateRecords reports every offending record by index.
func validateRecords(records []Record, roster map[string]student.Student) error {
	var fldErrs []core.FieldError
	seen := make(map[string]bool, len(records))
	for i, rec := range records {
		prefix := fmt.Sprintf("attendanceRecords[%d].", i)
		if _, ok := roster[rec.StudentID]; !ok {
			fldErrs = append(fldErrs, core.FieldError{Field: prefix + "studentId", Error: errNotInSection.Error()})
		} else if seen[rec.StudentID] {
			fldErrs = append(fldErrs, core.FieldError{Field: prefix + "studentId", Error: errDuplicateRecord.Error()})
		}
		seen[rec.StudentID] = true
		if !rec.Status.IsValid() {
			fldErrs = append(fldErrs, core.FieldError{Field: prefix + "status", Error: errInvalidStatus.Error()})
		}
	}
	if fldErrs != nil {
		return core.NewValidationError(errInvalidBatch, fldErrs...)
	}
	return nil
}

// BySection returns the attendance of a grade & section over dr, grouped by date.
func (svc *Service) BySection(ctx context.Context, grade, section string, dr core.DateRange) (SectionReport, error) {
	grade, section = core.CleanString(grade), core.CleanString(section)
	if err := requireGradeAndSection(grade, section); err != nil {
		return SectionReport{}, err
	}

	roster, err := svc.studentSvc.Roster(ctx, grade, section)
	if err != nil {
		return SectionReport{}, errors.Wrap(err, "loading roster")
	}
	if len(roster) == 0 {
		return SectionReport{}, ErrEmptySection
	}
	students := make(map[string]student.Student, len(roster))
	studentIDs := make([]string, 0, len(roster))
	for _, st := range roster {
		students[st.ID] = st
		studentIDs = append(studentIDs, st.ID)
	}

	rows, _, err := svc.repo.Query(ctx, QueryFilter{StudentIDs: studentIDs, Range: dr})
	if err != nil {
		return SectionReport{}, errors.Wrap(err, "querying attendance")
	}
	byDate := make(map[string][]Attendance)
	for _, row := range rows {
		row.Student = newStudentRef(students[row.StudentID])
		key := row.Date.Format(core.DateLayout)
		byDate[key] = append(byDate[key], row)
	}

	return SectionReport{
		AttendanceByDate: byDate,
		Students:         roster,
		Stats: SectionStats{
			Total:        len(roster),
			Dates:        len(byDate),
			StatusCounts: countStatuses(rows),
		},
	}, nil
}

// ForStudent returns a student's attendance over dr; parents may only see their own children.
func (svc *Service) ForStudent(ctx context.Context, viewer user.User, studentID string, dr core.DateRange) (StudentReport, error) {
	st, err := svc.studentSvc.Get(ctx, studentID)
	if err != nil {
		return StudentReport{}, err
	}
	if !st.VisibleTo(viewer) {
		return StudentReport{}, ErrNotYourChild
	}
	return svc.studentReport(ctx, st, dr)
}

func (svc *Service) studentReport(ctx context.Context, st student.Student, dr core.DateRange) (StudentReport, error) {
	rows, _, err := svc.repo.Query(ctx, QueryFilter{StudentIDs: []string{st.ID}, Range: dr})
	if err != nil {
		return StudentReport{}, errors.Wrap(err, "querying attendance")
	}
	if rows == nil {
		rows = []Attendance{}
	}
	return StudentReport{
		Student:    st,
		Attendance: rows,
		Stats:      Summary{Total: len(rows), StatusCounts: countStatuses(rows)},
	}, nil
}

// ForTeacher returns the rows marked by the teacher user identified by teacherUserID, newest first;
// teachers may only see their own.
func (svc *Service) ForTeacher(ctx context.Context, viewer user.User, teacherUserID string, q TeacherQuery) (TeacherReport, error) {
	if viewer.IsTeacher() && viewer.ID != teacherUserID {
		return TeacherReport{}, ErrNotYourRecords
	}
	t, err := svc.teacherSvc.GetByUserID(ctx, teacherUserID)
	if err != nil {
		return TeacherReport{}, err
	}

	page := core.NewPagination(q.Page.Page, q.Page.Limit, TeacherPageLimit)
	filter := QueryFilter{MarkedBy: teacherUserID, Range: q.Range, Descending: true, Page: &page}
	if grade, section := core.CleanString(q.Grade), core.CleanString(q.Section); grade != "" && section != "" {
		roster, err := svc.studentSvc.Roster(ctx, grade, section)
		if err != nil {
			return TeacherReport{}, errors.Wrap(err, "loading roster")
		}
		filter.StudentIDs = make([]string, 0, len(roster))
		for _, st := range roster {
			filter.StudentIDs = append(filter.StudentIDs, st.ID)
		}
	}

	rows, total, err := svc.repo.Query(ctx, filter)
	if err != nil {
		return TeacherReport{}, errors.Wrap(err, "querying attendance")
	}

	grouped := make(map[string]map[string][]Attendance)
	if len(rows) > 0 {
		ids := make([]string, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.StudentID)
		}
		students, _, err := svc.studentSvc.Query(ctx, student.QueryFilter{IDs: ids})
		if err != nil {
			return TeacherReport{}, errors.Wrap(err, "loading students")
		}
		byID := make(map[string]student.Student, len(students))
		for _, st := range students {
			byID[st.ID] = st
		}

		for _, row := range rows {
			st, ok := byID[row.StudentID]
			if !ok {
				continue
			}
			row.Student = newStudentRef(st)
			dateKey := row.Date.Format(core.DateLayout)
			if grouped[dateKey] == nil {
				grouped[dateKey] = make(map[string][]Attendance)
			}
			sectionKey := st.Grade + "-" + st.Section
			grouped[dateKey][sectionKey] = append(grouped[dateKey][sectionKey], row)
		}
	}

	return TeacherReport{Teacher: t, Attendance: grouped, Pagination: page.Info(total)}, nil
}

// TodayStatus reports, for every grade & section the teacher is assigned to, how much of today's
// attendance is marked. Sections without students are skipped.
func (svc *Service) TodayStatus(ctx context.Context, usr user.User) ([]SectionProgress, error) {
	t, err := svc.teacherSvc.GetByUserID(ctx, usr.ID)
	if err != nil {
		return nil, err
	}

	today := core.TodayRange()
	progress := make([]SectionProgress, 0, len(t.Grades)*len(t.Sections))
	for _, grade := range t.Grades {
		for _, section := range t.Sections {
			roster, err := svc.studentSvc.Roster(ctx, grade, section)
			if err != nil {
				return nil, errors.Wrap(err, "loading roster")
			}
			if len(roster) == 0 {
				continue
			}
			ids := make([]string, 0, len(roster))
			for _, st := range roster {
				ids = append(ids, st.ID)
			}
			rows, _, err := svc.repo.Query(ctx, QueryFilter{StudentIDs: ids, Range: today})
			if err != nil {
				return nil, errors.Wrap(err, "querying attendance")
			}
			progress = append(progress, SectionProgress{
				Grade:            grade,
				Section:          section,
				TotalStudents:    len(roster),
				AttendanceMarked: len(rows),
				IsComplete:       len(rows) == len(roster),
				Progress:         int(math.Round(float64(len(rows)) / float64(len(roster)) * 100)),
			})
		}
	}
	return progress, nil
}

// ForParent returns the attendance of every child of parent over dr.
func (svc *Service) ForParent(ctx context.Context, parent user.User, dr core.DateRange) (ParentReport, error) {
	children, err := svc.studentSvc.ByParent(ctx, parent.ID)
	if err != nil {
		return ParentReport{}, errors.Wrap(err, "loading children")
	}
	report := ParentReport{
		Children:       make([]student.Student, 0, len(children)),
		AttendanceData: make([]StudentReport, 0, len(children)),
	}
	for _, child := range children {
		sr, err := svc.studentReport(ctx, child, dr)
		if err != nil {
			return ParentReport{}, err
		}
		report.Children = append(report.Children, child)
		report.AttendanceData = append(report.AttendanceData, sr)
	}
	return report, nil
}

func requireGradeAndSection(grade, section string) error {
	var fldErrs []core.FieldError
	if grade == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "grade", Error: errGradeRequired.Error()})
	}
	if section == "" {
		fldErrs = append(fldErrs, core.FieldError{Field: "section", Error: errSectionRequired.Error()})
	}
	if fldErrs != nil {
		return core.NewValidationError(errors.New(fldErrs[0].Error), fldErrs...)
	}
	return nil
}
