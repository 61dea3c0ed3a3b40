package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/admission"
)

const admissionColumns = `id, student_first_name, student_last_name, student_date_of_birth, student_gender, student_grade,
	parent_name, parent_email, parent_phone, parent_relation,
	emergency_name, emergency_relation, emergency_phone, address, status, application_date,
	comments, reviewed_by, review_date, created_at, updated_at`

type admissionRow struct {
	ID                 string      `db:"id"`
	StudentFirstName   string      `db:"student_first_name"`
	StudentLastName    string      `db:"student_last_name"`
	StudentDateOfBirth time.Time   `db:"student_date_of_birth"`
	StudentGender      string      `db:"student_gender"`
	StudentGrade       string      `db:"student_grade"`
	ParentName         string      `db:"parent_name"`
	ParentEmail        string      `db:"parent_email"`
	ParentPhone        string      `db:"parent_phone"`
	ParentRelation     string      `db:"parent_relation"`
	EmergencyName      string      `db:"emergency_name"`
	EmergencyRelation  string      `db:"emergency_relation"`
	EmergencyPhone     string      `db:"emergency_phone"`
	Address            string      `db:"address"`
	Status             string      `db:"status"`
	ApplicationDate    time.Time   `db:"application_date"`
	Comments           null.String `db:"comments"`
	ReviewedBy         null.String `db:"reviewed_by"`
	ReviewDate         null.Time   `db:"review_date"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

type admissionRepository struct {
	baseRepository
}

var _ admission.Repository = (*admissionRepository)(nil) // interface compliance check

func NewAdmissionRepository(db *sqlx.DB) *admissionRepository {
	return &admissionRepository{baseRepository{db: db}}
}

func (repo admissionRepository) boil(req admission.Request) admissionRow {
	return admissionRow{
		ID:                 req.ID,
		StudentFirstName:   req.StudentInfo.FirstName,
		StudentLastName:    req.StudentInfo.LastName,
		StudentDateOfBirth: req.StudentInfo.DateOfBirth.Time,
		StudentGender:      string(req.StudentInfo.Gender),
		StudentGrade:       req.StudentInfo.Grade,
		ParentName:         req.ParentInfo.Name,
		ParentEmail:        req.ParentInfo.Email,
		ParentPhone:        req.ParentInfo.Phone,
		ParentRelation:     req.ParentInfo.Relation,
		EmergencyName:      req.EmergencyContact.Name,
		EmergencyRelation:  req.EmergencyContact.Relation,
		EmergencyPhone:     req.EmergencyContact.Phone,
		Address:            req.Address,
		Status:             string(req.Status),
		ApplicationDate:    req.ApplicationDate.UTC(),
		Comments:           null.NewString(req.Comments, req.Comments != ""),
		ReviewedBy:         null.NewString(req.ReviewedBy, req.ReviewedBy != ""),
		ReviewDate:         null.TimeFromPtr(req.ReviewDate),
		CreatedAt:          req.CreatedAt.UTC(),
		UpdatedAt:          req.UpdatedAt.UTC(),
	}
}

func (repo admissionRepository) unboil(row admissionRow) admission.Request {
	req := admission.Request{
		ID: row.ID,
		StudentInfo: admission.StudentInfo{
			FirstName:   row.StudentFirstName,
			LastName:    row.StudentLastName,
			DateOfBirth: core.NewDate(row.StudentDateOfBirth),
			Gender:      core.Gender(row.StudentGender),
			Grade:       row.StudentGrade,
		},
		ParentInfo: admission.ParentInfo{
			Name:     row.ParentName,
			Email:    row.ParentEmail,
			Phone:    row.ParentPhone,
			Relation: row.ParentRelation,
		},
		EmergencyContact: core.EmergencyContact{
			Name:     row.EmergencyName,
			Relation: row.EmergencyRelation,
			Phone:    row.EmergencyPhone,
		},
		Address:         row.Address,
		Status:          admission.Status(row.Status),
		ApplicationDate: row.ApplicationDate.UTC(),
		Comments:        row.Comments.String,
		ReviewedBy:      row.ReviewedBy.String,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	if row.ReviewDate.Valid {
		reviewDate := row.ReviewDate.Time.UTC()
		req.ReviewDate = &reviewDate
	}
	return req
}

func (repo admissionRepository) Create(ctx context.Context, req admission.Request, exec ...core.DBExecutor) (admission.Request, error) {
	q := `INSERT INTO admission_requests (` + admissionColumns + `) VALUES (
		:id, :student_first_name, :student_last_name, :student_date_of_birth, :student_gender, :student_grade,
		:parent_name, :parent_email, :parent_phone, :parent_relation,
		:emergency_name, :emergency_relation, :emergency_phone, :address, :status, :application_date,
		:comments, :reviewed_by, :review_date, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.boil(req)); err != nil {
		return admission.Request{}, errors.Wrap(err, "inserting admission request")
	}
	return req, nil
}

func (repo admissionRepository) Get(ctx context.Context, id string, exec ...core.DBExecutor) (admission.Request, error) {
	var row admissionRow
	q := "SELECT " + admissionColumns + " FROM admission_requests WHERE id = $1"
	if err := repo.getExec(exec).GetContext(ctx, &row, q, id); err != nil {
		return admission.Request{}, trapNoRowsErr(err, admission.ErrNotFound, "selecting admission request")
	}
	return repo.unboil(row), nil
}

func (repo admissionRepository) Query(ctx context.Context, filter admission.QueryFilter, exec ...core.DBExecutor) ([]admission.Request, int, error) {
	var w where
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if filter.Search != "" {
		val := likeArg(filter.Search)
		w.add("(student_first_name ILIKE ? OR student_last_name ILIKE ? OR parent_name ILIKE ? OR parent_email ILIKE ?)",
			val, val, val, val)
	}

	var total int
	if err := repo.getExec(exec).GetContext(ctx, &total, "SELECT COUNT(*) FROM admission_requests"+w.String(), w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting admission requests")
	}

	order := " ORDER BY application_date DESC, id"
	if filter.Ascending {
		order = " ORDER BY application_date ASC, id"
	}
	q := "SELECT " + admissionColumns + " FROM admission_requests" + w.String() + order
	q += w.page(&filter.Page)

	var rows []admissionRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting admission requests")
	}
	reqs := make([]admission.Request, 0, len(rows))
	for _, row := range rows {
		reqs = append(reqs, repo.unboil(row))
	}
	return reqs, total, nil
}

func (repo admissionRepository) HasLive(ctx context.Context, filter admission.DuplicateFilter, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (
		SELECT 1 FROM admission_requests
		WHERE student_first_name = $1 AND student_last_name = $2 AND parent_email = $3
		AND status IN ($4, $5))`
	err := repo.getExec(exec).GetContext(ctx, &exists, q,
		filter.FirstName, filter.LastName, filter.ParentEmail,
		string(admission.StatusPending), string(admission.StatusApproved))
	return exists, errors.Wrap(err, "checking live admission requests")
}

// Decide is a conditional update: only a still pending request is modified.
func (repo admissionRepository) Decide(ctx context.Context, id string, d admission.Decision, exec ...core.DBExecutor) (admission.Request, error) {
	q := `UPDATE admission_requests
		SET status = $2, comments = $3, reviewed_by = $4, review_date = $5, updated_at = $5
		WHERE id = $1 AND status = $6
		RETURNING ` + admissionColumns

	var row admissionRow
	err := repo.getExec(exec).GetContext(ctx, &row, q,
		id, string(d.Status), null.NewString(d.Comments, d.Comments != ""), d.ReviewedBy, d.ReviewDate.UTC(),
		string(admission.StatusPending))
	if err == nil {
		return repo.unboil(row), nil
	}
	if errors.Cause(err) != sql.ErrNoRows {
		return admission.Request{}, errors.Wrap(err, "deciding admission request")
	}

	if _, err = repo.Get(ctx, id, exec...); err != nil {
		return admission.Request{}, err
	}
	return admission.Request{}, admission.ErrAlreadyReviewed
}
