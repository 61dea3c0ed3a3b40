package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) Query(_ context.Context, filter attendance.QueryFilter, _ ...core.DBExecutor) ([]attendance.Attendance, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := idSet(filter.StudentIDs)
	rows := make([]attendance.Attendance, 0)
	for _, a := range repo.db.data.attendance {
		if ids != nil && !ids[a.StudentID] {
			continue
		}
		if filter.MarkedBy != "" && a.MarkedBy != filter.MarkedBy {
			continue
		}
		if !filter.Range.Contains(a.Date.Time) {
			continue
		}
		rows = append(rows, a)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date.Time) {
			if filter.Descending {
				return rows[i].Date.After(rows[j].Date.Time)
			}
			return rows[i].Date.Before(rows[j].Date.Time)
		}
		return rows[i].StudentID < rows[j].StudentID
	})
	return paginate(rows, filter.Page), len(rows), nil
}

func (repo *attendanceRepository) BulkWrite(
	_ context.Context,
	inserts, updates []attendance.Attendance,
	exec ...core.DBExecutor,
) (inserted, updated int, err error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	byKey := make(map[string]string, len(repo.db.data.attendance)) // {studentID/date: id}
	for id, a := range repo.db.data.attendance {
		byKey[attendanceKey(a)] = id
	}

	for _, a := range inserts {
		if id, ok := byKey[attendanceKey(a)]; ok {
			existing := repo.db.data.attendance[id]
			existing.Status, existing.Remarks, existing.MarkedBy, existing.UpdatedAt = a.Status, a.Remarks, a.MarkedBy, a.UpdatedAt
			put(exec, repo.db.data.attendance, id, existing)
			updated++
			continue
		}
		a.Student = nil
		put(exec, repo.db.data.attendance, a.ID, a)
		byKey[attendanceKey(a)] = a.ID
		inserted++
	}
	for _, a := range updates {
		existing, ok := repo.db.data.attendance[a.ID]
		if !ok { // deleted since it was loaded; nothing to update, as with the SQL store
			continue
		}
		existing.Status, existing.Remarks, existing.MarkedBy, existing.UpdatedAt = a.Status, a.Remarks, a.MarkedBy, a.UpdatedAt
		put(exec, repo.db.data.attendance, a.ID, existing)
		updated++
	}
	return inserted, updated, nil
}

func attendanceKey(a attendance.Attendance) string {
	return a.StudentID + "/" + a.Date.Format(core.DateLayout)
}
