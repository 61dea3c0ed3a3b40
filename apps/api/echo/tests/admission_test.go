package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/admission"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/tests"
)

func TestAdmission_Submit(t *testing.T) {
	s := newTestServer(t)
	app := testutil.NewApplication("Amani", "Kabila", "Nursery", "mama@test.cd")

	invalid := app
	invalid.ParentInfo.Email = "not-an-email"
	invalid.StudentInfo.Gender = "X"

	s.run(t, []httpTest{
		{
			name:     "invalid application",
			method:   http.MethodPost,
			path:     "/api/v1/admission/submit-application",
			body:     invalid,
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, resp response) {
				assert.Contains(t, resp.Errors, "parentInfo.email")
				assert.Contains(t, resp.Errors, "studentInfo.gender")
			},
		},
		{
			name:     "submitted",
			method:   http.MethodPost,
			path:     "/api/v1/admission/submit-application",
			body:     app,
			wantCode: http.StatusCreated,
			wantMsg:  "Admission request submitted successfully",
			check: func(t *testing.T, resp response) {
				var req admission.Request
				decodeData(t, resp, &req)
				assert.NotEmpty(t, req.ID)
				assert.Equal(t, admission.StatusPending, req.Status)
			},
		},
		{
			name:     "duplicate",
			method:   http.MethodPost,
			path:     "/api/v1/admission/submit-application",
			body:     app,
			wantCode: http.StatusConflict,
			wantMsg:  admission.ErrDuplicate.Error(),
		},
	})
}

func TestAdmission_Review(t *testing.T) {
	s := newTestServer(t)
	admin := s.createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	parent := s.createUser(t, "Parent", "parent@test.cd", user.RoleParent)
	adminToken := s.tokenFor(t, admin)

	approved, err := s.env.AdmissionSvc.Submit(s.ctx(), testutil.NewApplication("Amani", "Kabila", "Nursery", "mama@test.cd"))
	require.NoError(t, err)
	rejected, err := s.env.AdmissionSvc.Submit(s.ctx(), testutil.NewApplication("Baraka", "Tshisekedi", "KG1", "papa@test.cd"))
	require.NoError(t, err)
	emailsvc.ClearSentMessages()

	review := func(id string) string { return "/api/v1/admission/review/" + id }

	s.run(t, []httpTest{
		{
			name:     "not an admin",
			method:   http.MethodPut,
			path:     review(approved.ID),
			body:     admission.ReviewRequest{Status: admission.StatusApproved, Section: "A"},
			token:    s.tokenFor(t, parent),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown application",
			method:   http.MethodPut,
			path:     review("nope"),
			body:     admission.ReviewRequest{Status: admission.StatusRejected},
			token:    adminToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "pending is not a decision",
			method:   http.MethodPut,
			path:     review(approved.ID),
			body:     admission.ReviewRequest{Status: admission.StatusPending},
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, resp response) {
				assert.Contains(t, resp.Errors, "status")
			},
		},
		{
			name:     "approval needs a section",
			method:   http.MethodPut,
			path:     review(approved.ID),
			body:     admission.ReviewRequest{Status: admission.StatusApproved},
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, resp response) {
				assert.Contains(t, resp.Errors, "section")
			},
		},
		{
			name:     "approved",
			method:   http.MethodPut,
			path:     review(approved.ID),
			body:     admission.ReviewRequest{Status: admission.StatusApproved, Section: "A", Comments: "welcome"},
			token:    adminToken,
			wantCode: http.StatusOK,
			wantMsg:  "Application approved and student enrolled successfully",
			check: func(t *testing.T, resp response) {
				var res admission.ReviewResult
				decodeData(t, resp, &res)
				assert.Equal(t, admission.StatusApproved, res.Application.Status)
				assert.Equal(t, admin.ID, res.Application.ReviewedBy)
				require.NotNil(t, res.Student)
				assert.Equal(t, "Nursery", res.Student.Grade)
				assert.Equal(t, "A", res.Student.Section)
				require.NotNil(t, res.Parent)
				assert.Equal(t, "mama@test.cd", res.Parent.Email)
				assert.Equal(t, res.Parent.ID, res.Student.ParentID)

				assert.Len(t, s.env.Events.Events(core.EventAdmissionReviewed), 1)
				assert.NotEmpty(t, emailsvc.LastSentMessages())
			},
		},
		{
			name:     "already reviewed",
			method:   http.MethodPut,
			path:     review(approved.ID),
			body:     admission.ReviewRequest{Status: admission.StatusRejected},
			token:    adminToken,
			wantCode: http.StatusConflict,
		},
		{
			name:     "rejected",
			method:   http.MethodPut,
			path:     review(rejected.ID),
			body:     admission.ReviewRequest{Status: admission.StatusRejected},
			token:    adminToken,
			wantCode: http.StatusOK,
			wantMsg:  "Application rejected successfully",
			check: func(t *testing.T, resp response) {
				var res admission.ReviewResult
				decodeData(t, resp, &res)
				assert.Nil(t, res.Student)
				assert.Nil(t, res.Parent)
			},
		},
	})
}

func TestAdmission_Applications(t *testing.T) {
	s := newTestServer(t)
	admin := s.createUser(t, "Admin", "admin@test.cd", user.RoleAdmin)
	token := s.tokenFor(t, admin)

	for _, name := range []string{"Amani", "Baraka", "Chiku"} {
		_, err := s.env.AdmissionSvc.Submit(s.ctx(), testutil.NewApplication(name, "Doe", "KG1", name+"@test.cd"))
		require.NoError(t, err)
	}

	firstNames := func(t *testing.T, resp response) []string {
		var reqs []admission.Request
		decodeData(t, resp, &reqs)
		names := make([]string, 0, len(reqs))
		for _, r := range reqs {
			names = append(names, r.StudentInfo.FirstName)
		}
		return names
	}

	s.run(t, []httpTest{
		{
			name:     "invalid status",
			method:   http.MethodGet,
			path:     "/api/v1/admission/applications?status=maybe",
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "invalid page",
			method:   http.MethodGet,
			path:     "/api/v1/admission/applications?page=0",
			token:    token,
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, resp response) {
				assert.Contains(t, resp.Errors, "page")
			},
		},
		{
			name:     "pending by default",
			method:   http.MethodGet,
			path:     "/api/v1/admission/applications?limit=2",
			token:    token,
			wantCode: http.StatusOK,
			check: func(t *testing.T, resp response) {
				assert.Len(t, firstNames(t, resp), 2)
				require.NotNil(t, resp.Pagination)
				assert.Equal(t, 3, resp.Pagination.TotalItems)
				assert.Equal(t, 2, resp.Pagination.TotalPages)
				assert.True(t, resp.Pagination.HasNextPage)
			},
		},
		{
			name:     "search",
			method:   http.MethodGet,
			path:     "/api/v1/admission/applications?search=bar",
			token:    token,
			wantCode: http.StatusOK,
			check: func(t *testing.T, resp response) {
				assert.Equal(t, []string{"Baraka"}, firstNames(t, resp))
			},
		},
		{
			name:     "no approved yet",
			method:   http.MethodGet,
			path:     "/api/v1/admission/applications?status=approved",
			token:    token,
			wantCode: http.StatusOK,
			check: func(t *testing.T, resp response) {
				assert.Empty(t, firstNames(t, resp))
				assert.Equal(t, 0, resp.Pagination.TotalItems)
			},
		},
	})
}
