package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/email"
)

func newTeacherBody(email string) teacher.NewTeacher {
	return teacher.NewTeacher{
		Name:           "Mwalimu Juma",
		Email:          email,
		Phone:          "+243990000000",
		Designation:    "Senior Teacher",
		Qualifications: []string{"B.Ed"},
		Subjects:       []string{"French", "Maths"},
		Grades:         []string{"KG1"},
		Sections:       []string{"A"},
		JoiningDate:    core.NewDate(time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)),
		EmploymentType: teacher.FullTime,
		Salary:         1200,
	}
}

func TestTeacher_Create(t *testing.T) {
	f := newAttendanceFixture(t)
	emailsvc.ClearSentMessages()

	invalid := newTeacherBody("juma@test.cd")
	invalid.Subjects = []string{" "}
	invalid.Salary = 0

	f.run(t, []httpTest{
		{
			name:     "admins only",
			method:   http.MethodPost,
			path:     "/api/v1/teachers",
			body:     newTeacherBody("juma@test.cd"),
			token:    f.teacherToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "invalid",
			method:   http.MethodPost,
			path:     "/api/v1/teachers",
			body:     invalid,
			token:    f.adminToken,
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, resp response) {
				assert.Contains(t, resp.Errors, "subjects")
				assert.Contains(t, resp.Errors, "salary")
			},
		},
		{
			name:     "email taken",
			method:   http.MethodPost,
			path:     "/api/v1/teachers",
			body:     newTeacherBody("parent@test.cd"),
			token:    f.adminToken,
			wantCode: http.StatusConflict,
		},
		{
			name:     "created",
			method:   http.MethodPost,
			path:     "/api/v1/teachers",
			body:     newTeacherBody("Juma@Test.cd"),
			token:    f.adminToken,
			wantCode: http.StatusCreated,
			wantMsg:  "Teacher added successfully",
			check: func(t *testing.T, resp response) {
				var tchr teacher.Teacher
				decodeData(t, resp, &tchr)
				require.NotNil(t, tchr.User)
				assert.Equal(t, "juma@test.cd", tchr.User.Email)
				assert.Equal(t, user.RoleTeacher, tchr.User.Role)
				assert.Equal(t, []string{"French", "Maths"}, tchr.Subjects)

				msgs := emailsvc.LastSentMessages()
				require.Len(t, msgs, 1)
				assert.Equal(t, "juma@test.cd", msgs[0].To[0].Address)
			},
		},
	})
}

func TestTeacher_Query(t *testing.T) {
	f := newAttendanceFixture(t)
	for _, email := range []string{"a@test.cd", "b@test.cd"} {
		nt := newTeacherBody(email)
		_, err := f.env.TeacherSvc.Add(f.ctx(), nt)
		require.NoError(t, err)
	}

	f.run(t, []httpTest{
		{
			name:     "admins only",
			method:   http.MethodGet,
			path:     "/api/v1/teachers",
			token:    f.parentToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "paginated",
			method:   http.MethodGet,
			path:     "/api/v1/teachers?limit=2",
			token:    f.adminToken,
			wantCode: http.StatusOK,
			wantMsg:  "Teachers fetched successfully",
			check: func(t *testing.T, resp response) {
				var teachers []teacher.Teacher
				decodeData(t, resp, &teachers)
				assert.Len(t, teachers, 2)
				assert.Equal(t, 3, resp.Pagination.TotalItems)
				for _, tchr := range teachers {
					assert.NotNil(t, tchr.User)
				}
			},
		},
		{
			name:     "by grade",
			method:   http.MethodGet,
			path:     "/api/v1/teachers?grade=Nursery",
			token:    f.adminToken,
			wantCode: http.StatusOK,
			check: func(t *testing.T, resp response) {
				var teachers []teacher.Teacher
				decodeData(t, resp, &teachers)
				require.Len(t, teachers, 1)
				assert.Equal(t, f.teacher.ID, teachers[0].UserID)
			},
		},
	})
}

func TestTeacher_Dashboard(t *testing.T) {
	f := newAttendanceFixture(t)

	f.run(t, []httpTest{
		{
			name:     "teachers only",
			method:   http.MethodGet,
			path:     "/api/v1/teachers/dashboard",
			token:    f.adminToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "own profile",
			method:   http.MethodGet,
			path:     "/api/v1/teachers/dashboard",
			token:    f.teacherToken,
			wantCode: http.StatusOK,
			wantMsg:  "Teacher dashboard data fetched successfully",
			check: func(t *testing.T, resp response) {
				var data struct {
					User    user.User       `json:"user"`
					Teacher teacher.Teacher `json:"teacher"`
				}
				decodeData(t, resp, &data)
				assert.Equal(t, f.teacher.ID, data.User.ID)
				assert.Equal(t, []string{"A", "B"}, data.Teacher.Sections)
				assert.Nil(t, data.Teacher.User)
			},
		},
	})
}

func TestTeacher_Update(t *testing.T) {
	f := newAttendanceFixture(t)
	path := "/api/v1/teachers/tch-" + f.teacher.ID

	f.run(t, []httpTest{
		{
			name:     "nothing to update",
			method:   http.MethodPatch,
			path:     path,
			body:     map[string]interface{}{},
			token:    f.adminToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown teacher",
			method:   http.MethodPatch,
			path:     "/api/v1/teachers/nope",
			body:     map[string]interface{}{"teacherData": map[string]interface{}{"salary": 10}},
			token:    f.adminToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:   "email taken",
			method: http.MethodPatch,
			path:   path,
			body: map[string]interface{}{
				"userData":    map[string]interface{}{"email": "parent@test.cd"},
				"teacherData": map[string]interface{}{"salary": 10},
			},
			token:    f.adminToken,
			wantCode: http.StatusConflict,
		},
		{
			name:   "updated",
			method: http.MethodPatch,
			path:   path,
			body: map[string]interface{}{
				"userData":    map[string]interface{}{"name": "Mwalimu Mkuu"},
				"teacherData": map[string]interface{}{"sections": []string{"C"}, "salary": 1500},
			},
			token:    f.adminToken,
			wantCode: http.StatusOK,
			wantMsg:  "Teacher information updated successfully",
			check: func(t *testing.T, resp response) {
				var tchr teacher.Teacher
				decodeData(t, resp, &tchr)
				assert.Equal(t, []string{"C"}, tchr.Sections)
				assert.Equal(t, 1500.0, tchr.Salary)
				require.NotNil(t, tchr.User)
				assert.Equal(t, "Mwalimu Mkuu", tchr.User.Name)
				assert.Equal(t, "teacher@test.cd", tchr.User.Email)
			},
		},
	})
}

func TestTeacher_Remove(t *testing.T) {
	f := newAttendanceFixture(t)
	path := "/api/v1/teachers/tch-" + f.teacher.ID

	f.run(t, []httpTest{
		{
			name:     "admins only",
			method:   http.MethodDelete,
			path:     path,
			token:    f.teacherToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "removed",
			method:   http.MethodDelete,
			path:     path,
			token:    f.adminToken,
			wantCode: http.StatusOK,
			wantMsg:  "Teacher removed successfully",
		},
		{
			name:     "already removed",
			method:   http.MethodDelete,
			path:     path,
			token:    f.adminToken,
			wantCode: http.StatusNotFound,
		},
	})

	// the account went with the profile
	rec := f.do(t, http.MethodGet, "/api/v1/auth/me", f.teacherToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
