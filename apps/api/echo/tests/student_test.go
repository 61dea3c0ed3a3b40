package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/tests"
)

func studentIDs(t *testing.T, resp response) []string {
	var students []student.Student
	decodeData(t, resp, &students)
	ids := make([]string, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.ID)
	}
	return ids
}

func TestStudent_Query(t *testing.T) {
	f := newAttendanceFixture(t)

	f.run(t, []httpTest{
		{
			name:     "parents may not list",
			method:   http.MethodGet,
			path:     "/api/v1/student",
			token:    f.parentToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "all",
			method:   http.MethodGet,
			path:     "/api/v1/student",
			token:    f.adminToken,
			wantCode: http.StatusOK,
			wantMsg:  "Students fetched successfully",
			check: func(t *testing.T, resp response) {
				assert.ElementsMatch(t, []string{"s1", "s2", "s3"}, studentIDs(t, resp))
				require.NotNil(t, resp.Pagination)
				assert.Equal(t, 3, resp.Pagination.TotalItems)
			},
		},
		{
			name:     "by section",
			method:   http.MethodGet,
			path:     "/api/v1/student?grade=Nursery&section=B",
			token:    f.teacherToken,
			wantCode: http.StatusOK,
			check: func(t *testing.T, resp response) {
				assert.Equal(t, []string{"s3"}, studentIDs(t, resp))
			},
		},
		{
			name:     "search",
			method:   http.MethodGet,
			path:     "/api/v1/student?search=bara",
			token:    f.adminToken,
			wantCode: http.StatusOK,
			check: func(t *testing.T, resp response) {
				assert.Equal(t, []string{"s2"}, studentIDs(t, resp))
			},
		},
	})
}

func TestStudent_ByGradeAndSection(t *testing.T) {
	f := newAttendanceFixture(t)
	stranger := f.createUser(t, "Stranger", "stranger@test.cd", user.RoleTeacher)
	testutil.CreateTeacher(t, f.env.TeacherRepo, stranger, []string{"KG1"}, []string{"A"})

	f.run(t, []httpTest{
		{
			name:     "section required",
			method:   http.MethodGet,
			path:     "/api/v1/student/by-grade-and-section?grade=Nursery",
			token:    f.teacherToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "not assigned",
			method:   http.MethodGet,
			path:     "/api/v1/student/by-grade-and-section?grade=Nursery&section=A",
			token:    f.tokenFor(t, stranger),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "no students",
			method:   http.MethodGet,
			path:     "/api/v1/student/by-grade-and-section?grade=KG1&section=A",
			token:    f.tokenFor(t, stranger),
			wantCode: http.StatusNotFound,
			wantMsg:  "No students found",
		},
		{
			name:     "assigned",
			method:   http.MethodGet,
			path:     "/api/v1/student/by-grade-and-section?grade=Nursery&section=A",
			token:    f.teacherToken,
			wantCode: http.StatusOK,
			check: func(t *testing.T, resp response) {
				assert.ElementsMatch(t, []string{"s1", "s2"}, studentIDs(t, resp))
			},
		},
		{
			name:     "admins see every section",
			method:   http.MethodGet,
			path:     "/api/v1/student/by-grade-and-section?grade=Nursery&section=B",
			token:    f.adminToken,
			wantCode: http.StatusOK,
			check: func(t *testing.T, resp response) {
				assert.Equal(t, []string{"s3"}, studentIDs(t, resp))
			},
		},
	})
}

func TestStudent_ByParent(t *testing.T) {
	f := newAttendanceFixture(t)

	f.run(t, []httpTest{
		{
			name:     "own children",
			method:   http.MethodGet,
			path:     "/api/v1/student/by-parent?parentId=" + f.other.ID,
			token:    f.parentToken,
			wantCode: http.StatusOK,
			check: func(t *testing.T, resp response) {
				assert.ElementsMatch(t, []string{"s1", "s3"}, studentIDs(t, resp))
			},
		},
		{
			name:     "admin needs a parent",
			method:   http.MethodGet,
			path:     "/api/v1/student/by-parent",
			token:    f.adminToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "admin",
			method:   http.MethodGet,
			path:     "/api/v1/student/by-parent?parentId=" + f.other.ID,
			token:    f.adminToken,
			wantCode: http.StatusOK,
			check: func(t *testing.T, resp response) {
				assert.Equal(t, []string{"s2"}, studentIDs(t, resp))
			},
		},
		{
			name:     "teachers may not",
			method:   http.MethodGet,
			path:     "/api/v1/student/by-parent",
			token:    f.teacherToken,
			wantCode: http.StatusForbidden,
		},
	})
}

func TestStudent_Retrieve(t *testing.T) {
	f := newAttendanceFixture(t)

	f.run(t, []httpTest{
		{
			name:     "unknown",
			method:   http.MethodGet,
			path:     "/api/v1/student/nope",
			token:    f.adminToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "someone else's child",
			method:   http.MethodGet,
			path:     "/api/v1/student/s2",
			token:    f.parentToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "own child",
			method:   http.MethodGet,
			path:     "/api/v1/student/s1",
			token:    f.parentToken,
			wantCode: http.StatusOK,
			wantMsg:  "Student details fetched successfully",
			check: func(t *testing.T, resp response) {
				var st student.Student
				decodeData(t, resp, &st)
				assert.Equal(t, "Amani", st.FirstName)
			},
		},
	})
}

func TestStudent_Update(t *testing.T) {
	f := newAttendanceFixture(t)

	f.run(t, []httpTest{
		{
			name:     "admins only",
			method:   http.MethodPatch,
			path:     "/api/v1/student/s1",
			body:     map[string]string{"section": "B"},
			token:    f.teacherToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "invalid fee status",
			method:   http.MethodPatch,
			path:     "/api/v1/student/s1",
			body:     map[string]string{"feeStatus": "SOMETIMES"},
			token:    f.adminToken,
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, resp response) {
				assert.Contains(t, resp.Errors, "feeStatus")
			},
		},
		{
			name:     "roll number taken",
			method:   http.MethodPatch,
			path:     "/api/v1/student/s1",
			body:     map[string]string{"rollNumber": "RN-s2"},
			token:    f.adminToken,
			wantCode: http.StatusConflict,
		},
		{
			name:     "updated",
			method:   http.MethodPatch,
			path:     "/api/v1/student/s1",
			body:     map[string]string{"section": "B", "feeStatus": "PAID"},
			token:    f.adminToken,
			wantCode: http.StatusOK,
			wantMsg:  "Student information updated successfully",
			check: func(t *testing.T, resp response) {
				var st student.Student
				decodeData(t, resp, &st)
				assert.Equal(t, "B", st.Section)
				assert.Equal(t, student.FeePaid, st.FeeStatus)
				assert.Equal(t, "Amani", st.FirstName)
			},
		},
	})
}

func TestStudent_Remove(t *testing.T) {
	f := newAttendanceFixture(t)

	isLast := func(want bool) func(t *testing.T, resp response) {
		return func(t *testing.T, resp response) {
			var data struct {
				IsLastStudent bool `json:"isLastStudent"`
			}
			decodeData(t, resp, &data)
			assert.Equal(t, want, data.IsLastStudent)
		}
	}

	f.run(t, []httpTest{
		{
			name:     "admins only",
			method:   http.MethodDelete,
			path:     "/api/v1/student/s1",
			token:    f.parentToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "sibling left",
			method:   http.MethodDelete,
			path:     "/api/v1/student/s1",
			token:    f.adminToken,
			wantCode: http.StatusOK,
			wantMsg:  "Student removed successfully",
			check:    isLast(false),
		},
		{
			name:     "last child",
			method:   http.MethodDelete,
			path:     "/api/v1/student/s2",
			token:    f.adminToken,
			wantCode: http.StatusOK,
			check:    isLast(true),
		},
		{
			name:     "already removed",
			method:   http.MethodDelete,
			path:     "/api/v1/student/s2",
			token:    f.adminToken,
			wantCode: http.StatusNotFound,
		},
	})

	// the parent account went with its last child
	rec := f.do(t, http.MethodGet, "/api/v1/auth/me", f.otherToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
