package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/teacher"
)

type teacherRepository struct {
	db *DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *DB) *teacherRepository {
	return &teacherRepository{db: db}
}

func (repo *teacherRepository) Create(_ context.Context, t teacher.Teacher, exec ...core.DBExecutor) (teacher.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t.User = nil
	put(exec, repo.db.data.teachers, t.ID, t)
	return t, nil
}

func (repo *teacherRepository) Get(_ context.Context, filter teacher.GetFilter, _ ...core.DBExecutor) (teacher.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	switch {
	case filter.ID != "":
		if t, ok := repo.db.data.teachers[filter.ID]; ok {
			return t, nil
		}
	case filter.UserID != "":
		for _, t := range repo.db.data.teachers {
			if t.UserID == filter.UserID {
				return t, nil
			}
		}
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) matches(t teacher.Teacher, s string) bool {
	if s == "" {
		return true
	}
	if usr, ok := repo.db.data.users[t.UserID]; ok && (containsFold(usr.Name, s) || containsFold(usr.Email, s)) {
		return true
	}
	if containsFold(t.Designation, s) {
		return true
	}
	for _, v := range append(append([]string{}, t.Subjects...), t.Grades...) {
		if containsFold(v, s) {
			return true
		}
	}
	return false
}

func (repo *teacherRepository) Query(_ context.Context, filter teacher.QueryFilter, _ ...core.DBExecutor) ([]teacher.Teacher, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	teachers := make([]teacher.Teacher, 0)
	for _, t := range repo.db.data.teachers {
		if filter.Grade != "" && !contains(t.Grades, filter.Grade) {
			continue
		}
		if filter.Section != "" && !contains(t.Sections, filter.Section) {
			continue
		}
		if !repo.matches(t, filter.Search) {
			continue
		}
		teachers = append(teachers, t)
	}

	less := teacherLess(filter.Ordering.Field)
	sort.SliceStable(teachers, func(i, j int) bool {
		if filter.Ordering.Ascending {
			return less(teachers[i], teachers[j])
		}
		return less(teachers[j], teachers[i])
	})
	return paginate(teachers, filter.Page), len(teachers), nil
}

func teacherLess(col string) func(a, b teacher.Teacher) bool {
	switch col {
	case "joining_date":
		return func(a, b teacher.Teacher) bool { return a.JoiningDate.Before(b.JoiningDate.Time) }
	case "designation":
		return func(a, b teacher.Teacher) bool { return a.Designation < b.Designation }
	case "employment_type":
		return func(a, b teacher.Teacher) bool { return a.EmploymentType < b.EmploymentType }
	case "salary":
		return func(a, b teacher.Teacher) bool { return a.Salary < b.Salary }
	default:
		return func(a, b teacher.Teacher) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func (repo *teacherRepository) Update(_ context.Context, t teacher.Teacher, exec ...core.DBExecutor) (teacher.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.data.teachers[t.ID]; !ok {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	t.User = nil
	put(exec, repo.db.data.teachers, t.ID, t)
	return t, nil
}

func (repo *teacherRepository) Delete(_ context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	del(exec, repo.db.data.teachers, id)
	return nil
}
