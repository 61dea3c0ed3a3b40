package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/admission"
)

type admissionRepository struct {
	db *DB
}

var _ admission.Repository = (*admissionRepository)(nil) // interface compliance check

func NewAdmissionRepository(db *DB) *admissionRepository {
	return &admissionRepository{db: db}
}

func (repo *admissionRepository) Create(_ context.Context, req admission.Request, exec ...core.DBExecutor) (admission.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	put(exec, repo.db.data.admissions, req.ID, req)
	return req, nil
}

func (repo *admissionRepository) Get(_ context.Context, id string, _ ...core.DBExecutor) (admission.Request, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if req, ok := repo.db.data.admissions[id]; ok {
		return req, nil
	}
	return admission.Request{}, admission.ErrNotFound
}

func (repo *admissionRepository) Query(_ context.Context, filter admission.QueryFilter, _ ...core.DBExecutor) ([]admission.Request, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reqs := make([]admission.Request, 0)
	for _, req := range repo.db.data.admissions {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if s := filter.Search; s != "" &&
			!containsFold(req.StudentInfo.FirstName, s) &&
			!containsFold(req.StudentInfo.LastName, s) &&
			!containsFold(req.ParentInfo.Name, s) &&
			!containsFold(req.ParentInfo.Email, s) {
			continue
		}
		reqs = append(reqs, req)
	}
	sort.Slice(reqs, func(i, j int) bool {
		if filter.Ascending {
			return reqs[i].ApplicationDate.Before(reqs[j].ApplicationDate)
		}
		return reqs[i].ApplicationDate.After(reqs[j].ApplicationDate)
	})

	total := len(reqs)
	if filter.Page.Limit > 0 {
		reqs = paginate(reqs, &filter.Page)
	}
	return reqs, total, nil
}

func (repo *admissionRepository) HasLive(_ context.Context, filter admission.DuplicateFilter, _ ...core.DBExecutor) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, req := range repo.db.data.admissions {
		if req.Status != admission.StatusPending && req.Status != admission.StatusApproved {
			continue
		}
		if req.StudentInfo.FirstName == filter.FirstName &&
			req.StudentInfo.LastName == filter.LastName &&
			req.ParentInfo.Email == filter.ParentEmail {
			return true, nil
		}
	}
	return false, nil
}

func (repo *admissionRepository) Decide(_ context.Context, id string, d admission.Decision, exec ...core.DBExecutor) (admission.Request, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	req, ok := repo.db.data.admissions[id]
	if !ok {
		return admission.Request{}, admission.ErrNotFound
	}
	if req.Status != admission.StatusPending {
		return admission.Request{}, admission.ErrAlreadyReviewed
	}
	reviewDate := d.ReviewDate
	req.Status = d.Status
	req.Comments = d.Comments
	req.ReviewedBy = d.ReviewedBy
	req.ReviewDate = &reviewDate
	req.UpdatedAt = d.ReviewDate
	put(exec, repo.db.data.admissions, id, req)
	return req, nil
}
