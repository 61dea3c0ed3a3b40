package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/attendance"
)

const attendanceColumns = "id, student_id, date, status, marked_by, remarks, created_at, updated_at"

type attendanceRow struct {
	ID        string      `db:"id"`
	StudentID string      `db:"student_id"`
	Date      time.Time   `db:"date"`
	Status    string      `db:"status"`
	MarkedBy  null.String `db:"marked_by"`
	Remarks   string      `db:"remarks"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

type attendanceRepository struct {
	baseRepository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{baseRepository{db: db}}
}

func (repo attendanceRepository) boil(a attendance.Attendance) attendanceRow {
	return attendanceRow{
		ID:        a.ID,
		StudentID: a.StudentID,
		Date:      a.Date.Time,
		Status:    string(a.Status),
		MarkedBy:  null.NewString(a.MarkedBy, a.MarkedBy != ""),
		Remarks:   a.Remarks,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

func (repo attendanceRepository) unboil(row attendanceRow) attendance.Attendance {
	return attendance.Attendance{
		ID:        row.ID,
		StudentID: row.StudentID,
		Date:      core.NewDate(row.Date),
		Status:    attendance.Status(row.Status),
		MarkedBy:  row.MarkedBy.String,
		Remarks:   row.Remarks,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (repo attendanceRepository) Query(ctx context.Context, filter attendance.QueryFilter, exec ...core.DBExecutor) ([]attendance.Attendance, int, error) {
	if filter.StudentIDs != nil && len(filter.StudentIDs) == 0 {
		return []attendance.Attendance{}, 0, nil
	}

	var w where
	if filter.StudentIDs != nil {
		w.add("student_id = ANY(?)", pq.Array(filter.StudentIDs))
	}
	if filter.MarkedBy != "" {
		w.add("marked_by = ?", filter.MarkedBy)
	}
	if !filter.Range.From.IsZero() {
		w.add("date >= ?", filter.Range.From)
	}
	if !filter.Range.To.IsZero() {
		w.add("date <= ?", filter.Range.To)
	}

	var total int
	if err := repo.getExec(exec).GetContext(ctx, &total, "SELECT COUNT(*) FROM attendance"+w.String(), w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting attendance")
	}

	order := " ORDER BY date ASC, student_id"
	if filter.Descending {
		order = " ORDER BY date DESC, student_id"
	}
	q := "SELECT " + attendanceColumns + " FROM attendance" + w.String() + order
	q += w.page(filter.Page)

	var rows []attendanceRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting attendance")
	}
	records := make([]attendance.Attendance, 0, len(rows))
	for _, row := range rows {
		records = append(records, repo.unboil(row))
	}
	return records, total, nil
}

// BulkWrite upserts on (student_id, date) so that a row inserted concurrently by another batch
// is overwritten rather than duplicated; `xmax = 0` tells a fresh insert from an update.
func (repo attendanceRepository) BulkWrite(
	ctx context.Context,
	inserts, updates []attendance.Attendance,
	exec ...core.DBExecutor,
) (inserted, updated int, err error) {
	ex := repo.getExec(exec)

	upsert := `INSERT INTO attendance (` + attendanceColumns + `) VALUES (
		:id, :student_id, :date, :status, :marked_by, :remarks, :created_at, :updated_at)
		ON CONFLICT ON CONSTRAINT attendance_student_date_key DO UPDATE SET
		status = EXCLUDED.status, remarks = EXCLUDED.remarks, marked_by = EXCLUDED.marked_by,
		updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted`
	for _, a := range inserts {
		q, args, err := ex.BindNamed(upsert, repo.boil(a))
		if err != nil {
			return 0, 0, errors.Wrap(err, "binding attendance upsert")
		}
		var fresh bool
		if err = ex.QueryRowxContext(ctx, q, args...).Scan(&fresh); err != nil {
			return 0, 0, errors.Wrap(err, "upserting attendance")
		}
		if fresh {
			inserted++
		} else {
			updated++
		}
	}

	update := `UPDATE attendance SET
		status = :status, remarks = :remarks, marked_by = :marked_by, updated_at = :updated_at
		WHERE id = :id`
	for _, a := range updates {
		res, err := sqlx.NamedExecContext(ctx, ex, update, repo.boil(a))
		if err != nil {
			return 0, 0, errors.Wrap(err, "updating attendance")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, errors.Wrap(err, "updating attendance")
		}
		updated += int(n)
	}
	return inserted, updated, nil
}
