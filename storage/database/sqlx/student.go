package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
)

const (
	studentColumns = `id, first_name, last_name, date_of_birth, gender, address, admission_date, grade, section,
	roll_number, parent_id, admission_status, fee_status, emergency_name, emergency_relation, emergency_phone,
	avatar, created_at, updated_at`
	studentRollNumberUnique = "students_roll_number_key"
)

type studentRow struct {
	ID                string    `db:"id"`
	FirstName         string    `db:"first_name"`
	LastName          string    `db:"last_name"`
	DateOfBirth       time.Time `db:"date_of_birth"`
	Gender            string    `db:"gender"`
	Address           string    `db:"address"`
	AdmissionDate     time.Time `db:"admission_date"`
	Grade             string    `db:"grade"`
	Section           string    `db:"section"`
	RollNumber        string    `db:"roll_number"`
	ParentID          string    `db:"parent_id"`
	AdmissionStatus   string    `db:"admission_status"`
	FeeStatus         string    `db:"fee_status"`
	EmergencyName     string    `db:"emergency_name"`
	EmergencyRelation string    `db:"emergency_relation"`
	EmergencyPhone    string    `db:"emergency_phone"`
	Avatar            string    `db:"avatar"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

type studentRepository struct {
	baseRepository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{baseRepository{db: db}}
}

func (repo studentRepository) boil(st student.Student) studentRow {
	return studentRow{
		ID:                st.ID,
		FirstName:         st.FirstName,
		LastName:          st.LastName,
		DateOfBirth:       st.DateOfBirth.Time,
		Gender:            string(st.Gender),
		Address:           st.Address,
		AdmissionDate:     st.AdmissionDate.UTC(),
		Grade:             st.Grade,
		Section:           st.Section,
		RollNumber:        st.RollNumber,
		ParentID:          st.ParentID,
		AdmissionStatus:   string(st.AdmissionStatus),
		FeeStatus:         string(st.FeeStatus),
		EmergencyName:     st.EmergencyContact.Name,
		EmergencyRelation: st.EmergencyContact.Relation,
		EmergencyPhone:    st.EmergencyContact.Phone,
		Avatar:            st.Avatar,
		CreatedAt:         st.CreatedAt.UTC(),
		UpdatedAt:         st.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) unboil(row studentRow) student.Student {
	return student.Student{
		ID:              row.ID,
		FirstName:       row.FirstName,
		LastName:        row.LastName,
		DateOfBirth:     core.NewDate(row.DateOfBirth),
		Gender:          core.Gender(row.Gender),
		Address:         row.Address,
		AdmissionDate:   row.AdmissionDate.UTC(),
		Grade:           row.Grade,
		Section:         row.Section,
		RollNumber:      row.RollNumber,
		ParentID:        row.ParentID,
		AdmissionStatus: core.AdmissionStatus(row.AdmissionStatus),
		FeeStatus:       student.FeeStatus(row.FeeStatus),
		EmergencyContact: core.EmergencyContact{
			Name:     row.EmergencyName,
			Relation: row.EmergencyRelation,
			Phone:    row.EmergencyPhone,
		},
		Avatar:    row.Avatar,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) Create(ctx context.Context, st student.Student, exec ...core.DBExecutor) (student.Student, error) {
	q := `INSERT INTO students (` + studentColumns + `) VALUES (
		:id, :first_name, :last_name, :date_of_birth, :gender, :address, :admission_date, :grade, :section,
		:roll_number, :parent_id, :admission_status, :fee_status, :emergency_name, :emergency_relation, :emergency_phone,
		:avatar, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.boil(st)); err != nil {
		return student.Student{}, trapUniqueErr(err, studentRollNumberUnique, student.ErrRollNumberExists, "inserting student")
	}
	return st, nil
}

func (repo studentRepository) Get(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error) {
	var row studentRow
	q := "SELECT " + studentColumns + " FROM students WHERE id = $1"
	if err := repo.getExec(exec).GetContext(ctx, &row, q, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "selecting student")
	}
	return repo.unboil(row), nil
}

func (repo studentRepository) Query(ctx context.Context, filter student.QueryFilter, exec ...core.DBExecutor) ([]student.Student, int, error) {
	var w where
	if filter.IDs != nil {
		w.add("id = ANY(?)", pq.Array(filter.IDs))
	}
	if filter.Grade != "" {
		w.add("grade = ?", filter.Grade)
	}
	if filter.Section != "" {
		w.add("section = ?", filter.Section)
	}
	if filter.ParentID != "" {
		w.add("parent_id = ?", filter.ParentID)
	}
	if filter.Search != "" {
		val := likeArg(filter.Search)
		w.add("(first_name ILIKE ? OR last_name ILIKE ? OR roll_number ILIKE ?)", val, val, val)
	}

	var total int
	if err := repo.getExec(exec).GetContext(ctx, &total, "SELECT COUNT(*) FROM students"+w.String(), w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting students")
	}

	q := "SELECT " + studentColumns + " FROM students" + w.String() + " ORDER BY first_name, last_name, id"
	q += w.page(filter.Page)

	var rows []studentRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.unboil(row))
	}
	return students, total, nil
}

func (repo studentRepository) RollNumberExists(ctx context.Context, rollNumber string, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	err := repo.getExec(exec).GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM students WHERE upper(roll_number) = upper($1))", rollNumber)
	return exists, errors.Wrap(err, "checking roll number")
}

func (repo studentRepository) Update(ctx context.Context, st student.Student, exec ...core.DBExecutor) (student.Student, error) {
	q := `UPDATE students SET
		first_name = :first_name, last_name = :last_name, date_of_birth = :date_of_birth, gender = :gender,
		address = :address, grade = :grade, section = :section, roll_number = :roll_number,
		admission_status = :admission_status, fee_status = :fee_status, emergency_name = :emergency_name,
		emergency_relation = :emergency_relation, emergency_phone = :emergency_phone, avatar = :avatar,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.boil(st))
	if err != nil {
		return student.Student{}, trapUniqueErr(err, studentRollNumberUnique, student.ErrRollNumberExists, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return st, nil
}

func (repo studentRepository) Delete(ctx context.Context, id string, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx, "DELETE FROM students WHERE id = $1", id)
	return errors.Wrap(err, "deleting student")
}
