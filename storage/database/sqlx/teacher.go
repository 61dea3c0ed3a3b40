package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/teacher"
)

const teacherColumns = `t.id, t.user_id, t.designation, t.qualifications, t.subjects, t.grades, t.sections,
	t.joining_date, t.employment_type, t.salary, t.created_at, t.updated_at`

type teacherRow struct {
	ID             string         `db:"id"`
	UserID         string         `db:"user_id"`
	Designation    string         `db:"designation"`
	Qualifications pq.StringArray `db:"qualifications"`
	Subjects       pq.StringArray `db:"subjects"`
	Grades         pq.StringArray `db:"grades"`
	Sections       pq.StringArray `db:"sections"`
	JoiningDate    time.Time      `db:"joining_date"`
	EmploymentType string         `db:"employment_type"`
	Salary         float64        `db:"salary"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type teacherRepository struct {
	baseRepository
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *sqlx.DB) *teacherRepository {
	return &teacherRepository{baseRepository{db: db}}
}

func stringArray(ss []string) pq.StringArray {
	if ss == nil {
		return pq.StringArray{}
	}
	return ss
}

func (repo teacherRepository) boil(t teacher.Teacher) teacherRow {
	return teacherRow{
		ID:             t.ID,
		UserID:         t.UserID,
		Designation:    t.Designation,
		Qualifications: stringArray(t.Qualifications),
		Subjects:       stringArray(t.Subjects),
		Grades:         stringArray(t.Grades),
		Sections:       stringArray(t.Sections),
		JoiningDate:    t.JoiningDate.Time,
		EmploymentType: string(t.EmploymentType),
		Salary:         t.Salary,
		CreatedAt:      t.CreatedAt.UTC(),
		UpdatedAt:      t.UpdatedAt.UTC(),
	}
}

func (repo teacherRepository) unboil(row teacherRow) teacher.Teacher {
	return teacher.Teacher{
		ID:             row.ID,
		UserID:         row.UserID,
		Designation:    row.Designation,
		Qualifications: row.Qualifications,
		Subjects:       row.Subjects,
		Grades:         row.Grades,
		Sections:       row.Sections,
		JoiningDate:    core.NewDate(row.JoiningDate),
		EmploymentType: teacher.EmploymentType(row.EmploymentType),
		Salary:         row.Salary,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

func (repo teacherRepository) Create(ctx context.Context, t teacher.Teacher, exec ...core.DBExecutor) (teacher.Teacher, error) {
	q := `INSERT INTO teachers (
		id, user_id, designation, qualifications, subjects, grades, sections,
		joining_date, employment_type, salary, created_at, updated_at
	) VALUES (
		:id, :user_id, :designation, :qualifications, :subjects, :grades, :sections,
		:joining_date, :employment_type, :salary, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.boil(t)); err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	t.User = nil
	return t, nil
}

func (repo teacherRepository) Get(ctx context.Context, filter teacher.GetFilter, exec ...core.DBExecutor) (teacher.Teacher, error) {
	var w where
	switch {
	case filter.ID != "":
		w.add("t.id = ?", filter.ID)
	case filter.UserID != "":
		w.add("t.user_id = ?", filter.UserID)
	default:
		return teacher.Teacher{}, teacher.ErrNotFound
	}

	var row teacherRow
	if err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+teacherColumns+" FROM teachers t"+w.String(), w.args...); err != nil {
		return teacher.Teacher{}, trapNoRowsErr(err, teacher.ErrNotFound, "selecting teacher")
	}
	return repo.unboil(row), nil
}

func (repo teacherRepository) Query(ctx context.Context, filter teacher.QueryFilter, exec ...core.DBExecutor) ([]teacher.Teacher, int, error) {
	var w where
	if filter.Grade != "" {
		w.add("? = ANY(t.grades)", filter.Grade)
	}
	if filter.Section != "" {
		w.add("? = ANY(t.sections)", filter.Section)
	}
	if filter.Search != "" {
		val := likeArg(filter.Search)
		w.add(`(u.name ILIKE ? OR u.email ILIKE ? OR t.designation ILIKE ?
			OR array_to_string(t.subjects, ' ') ILIKE ? OR array_to_string(t.grades, ' ') ILIKE ?)`,
			val, val, val, val, val)
	}
	from := " FROM teachers t JOIN users u ON u.id = t.user_id"

	var total int
	if err := repo.getExec(exec).GetContext(ctx, &total, "SELECT COUNT(*)"+from+w.String(), w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting teachers")
	}

	ordering := filter.Ordering
	if ordering.Field == "" {
		ordering.Field = "created_at"
	}
	q := "SELECT " + teacherColumns + from + w.String() + " ORDER BY t." + ordering.String() + ", t.id"
	q += w.page(filter.Page)

	var rows []teacherRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting teachers")
	}
	teachers := make([]teacher.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, repo.unboil(row))
	}
	return teachers, total, nil
}

func (repo teacherRepository) Update(ctx context.Context, t teacher.Teacher, exec ...core.DBExecutor) (teacher.Teacher, error) {
	q := `UPDATE teachers SET
		designation = :designation, qualifications = :qualifications, subjects = :subjects, grades = :grades,
		sections = :sections, joining_date = :joining_date, employment_type = :employment_type, salary = :salary,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.boil(t))
	if err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	t.User = nil
	return t, nil
}

func (repo teacherRepository) Delete(ctx context.Context, id string, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM teachers WHERE id = $1", id)
	return errors.Wrap(err, "deleting teacher")
}
