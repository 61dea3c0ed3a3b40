package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

// rollNumberTaken ignores case, like the unique index on upper(roll_number).
func (repo *studentRepository) rollNumberTaken(rollNumber, excludedID string) bool {
	for _, st := range repo.db.data.students {
		if strings.EqualFold(st.RollNumber, rollNumber) && st.ID != excludedID {
			return true
		}
	}
	return false
}

func (repo *studentRepository) Create(_ context.Context, st student.Student, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.rollNumberTaken(st.RollNumber, "") {
		return student.Student{}, student.ErrRollNumberExists
	}
	put(exec, repo.db.data.students, st.ID, st)
	return st, nil
}

func (repo *studentRepository) Get(_ context.Context, id string, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if st, ok := repo.db.data.students[id]; ok {
		return st, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) Query(_ context.Context, filter student.QueryFilter, _ ...core.DBExecutor) ([]student.Student, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := idSet(filter.IDs)
	students := make([]student.Student, 0)
	for _, st := range repo.db.data.students {
		if ids != nil && !ids[st.ID] {
			continue
		}
		if (filter.Grade != "" && st.Grade != filter.Grade) ||
			(filter.Section != "" && st.Section != filter.Section) ||
			(filter.ParentID != "" && st.ParentID != filter.ParentID) {
			continue
		}
		if s := filter.Search; s != "" &&
			!containsFold(st.FirstName, s) &&
			!containsFold(st.LastName, s) &&
			!containsFold(st.RollNumber, s) {
			continue
		}
		students = append(students, st)
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].FirstName != students[j].FirstName {
			return students[i].FirstName < students[j].FirstName
		}
		if students[i].LastName != students[j].LastName {
			return students[i].LastName < students[j].LastName
		}
		return students[i].ID < students[j].ID
	})
	return paginate(students, filter.Page), len(students), nil
}

func (repo *studentRepository) RollNumberExists(_ context.Context, rollNumber string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.rollNumberTaken(rollNumber, ""), nil
}

func (repo *studentRepository) Update(_ context.Context, st student.Student, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.data.students[st.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	if repo.rollNumberTaken(st.RollNumber, st.ID) {
		return student.Student{}, student.ErrRollNumberExists
	}
	put(exec, repo.db.data.students, st.ID, st)
	return st, nil
}

// Delete removes the student along with its attendance.
func (repo *studentRepository) Delete(_ context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	del(exec, repo.db.data.students, id)
	for aid, a := range repo.db.data.attendance {
		if a.StudentID == id {
			del(exec, repo.db.data.attendance, aid)
		}
	}
	return nil
}
