package admission_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/admission"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/tests"
)

func TestService_Submit(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	now := time.Date(2024, 9, 2, 8, 30, 0, 0, time.UTC)
	testutil.FreezeTime(t, now)

	req, err := env.AdmissionSvc.Submit(ctx, testutil.NewApplication("Amani", "Kabila", "Nursery", "mama@test.cd"))
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, admission.StatusPending, req.Status)
	assert.Equal(t, now, req.ApplicationDate)
	assert.Nil(t, req.ReviewDate)

	// same student & parent while the first one is live
	_, err = env.AdmissionSvc.Submit(ctx, testutil.NewApplication("Amani", "Kabila", "Grade 1", "mama@test.cd"))
	assert.Equal(t, admission.ErrDuplicate, err)

	// a sibling is fine
	_, err = env.AdmissionSvc.Submit(ctx, testutil.NewApplication("Baraka", "Kabila", "Nursery", "mama@test.cd"))
	assert.NoError(t, err)

	// once rejected, the student may apply again
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin@test.cd", "", user.RoleAdmin, true)
	_, err = env.AdmissionSvc.Review(ctx, req.ID, admission.ReviewRequest{Status: admission.StatusRejected}, admin)
	require.NoError(t, err)
	_, err = env.AdmissionSvc.Submit(ctx, testutil.NewApplication("Amani", "Kabila", "Nursery", "mama@test.cd"))
	assert.NoError(t, err)
}

func TestNewApplication_Validate(t *testing.T) {
	env := testutil.NewEnv(t)

	na := testutil.NewApplication("  Amani ", "Kabila", "Nursery", " MAMA@Test.cd ")
	require.NoError(t, na.Validate(env.Validate))
	assert.Equal(t, "Amani", na.StudentInfo.FirstName)
	assert.Equal(t, "mama@test.cd", na.ParentInfo.Email)

	na = testutil.NewApplication("Amani", "Kabila", "Nursery", "not-an-email")
	na.StudentInfo.DateOfBirth = core.Date{}
	na.StudentInfo.Gender = "unknown"
	na.EmergencyContact.Phone = " "
	err := na.Validate(env.Validate)
	require.Error(t, err)
	fields := core.TranslateValidationErrors(err.(validator.ValidationErrors), env.Translator)
	assert.Contains(t, fields, "parentInfo.email")
	assert.Contains(t, fields, "studentInfo.dateOfBirth")
	assert.Contains(t, fields, "studentInfo.gender")
	assert.Contains(t, fields, "emergencyContact.phone")
}

func TestService_Query(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	base := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin@test.cd", "", user.RoleAdmin, true)

	submit := func(first, last, email string, at time.Time) admission.Request {
		core.NowFunc = func() time.Time { return at }
		req, err := env.AdmissionSvc.Submit(ctx, testutil.NewApplication(first, last, "Nursery", email))
		require.NoError(t, err)
		return req
	}
	defer func() { core.NowFunc = time.Now }()

	r1 := submit("Amani", "Kabila", "a@test.cd", base)
	r2 := submit("Baraka", "Tshala", "b@test.cd", base.Add(time.Hour))
	r3 := submit("Chiku", "Mbuyi", "c@test.cd", base.Add(2*time.Hour))
	_, err := env.AdmissionSvc.Review(ctx, r2.ID, admission.ReviewRequest{Status: admission.StatusWaitlisted}, admin)
	require.NoError(t, err)

	ids := func(reqs []admission.Request) []string {
		out := make([]string, 0, len(reqs))
		for _, r := range reqs {
			out = append(out, r.ID)
		}
		return out
	}

	tests := []struct {
		name      string
		filter    admission.QueryFilter
		wantIDs   []string
		wantTotal int
	}{
		{name: "pending by default, newest first", filter: admission.QueryFilter{}, wantIDs: []string{r3.ID, r1.ID}, wantTotal: 2},
		{name: "ascending", filter: admission.QueryFilter{Ascending: true}, wantIDs: []string{r1.ID, r3.ID}, wantTotal: 2},
		{name: "status", filter: admission.QueryFilter{Status: admission.StatusWaitlisted}, wantIDs: []string{r2.ID}, wantTotal: 1},
		{name: "search student", filter: admission.QueryFilter{Search: "chik"}, wantIDs: []string{r3.ID}, wantTotal: 1},
		{name: "search parent email", filter: admission.QueryFilter{Search: "A@TEST"}, wantIDs: []string{r1.ID}, wantTotal: 1},
		{
			name:      "paginated",
			filter:    admission.QueryFilter{Page: core.NewPagination(2, 1, core.DefaultPageLimit)},
			wantIDs:   []string{r1.ID},
			wantTotal: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs, total, err := env.AdmissionSvc.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(reqs))
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestService_Review(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 9, 3, 9, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*testutil.Env, user.User, admission.Request) {
		env := testutil.NewEnv(t)
		testutil.FreezeTime(t, now)
		admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin@test.cd", "", user.RoleAdmin, true)
		req, err := env.AdmissionSvc.Submit(ctx, testutil.NewApplication("Amani", "Kabila", "Nursery", "mama@test.cd"))
		require.NoError(t, err)
		return env, admin, req
	}

	t.Run("approval enrolls the student and provisions the parent", func(t *testing.T) {
		env, admin, req := setup(t)

		res, err := env.AdmissionSvc.Review(ctx, req.ID, admission.ReviewRequest{
			Status:   admission.StatusApproved,
			Comments: " welcome ",
			Section:  "B",
		}, admin)
		require.NoError(t, err)

		app := res.Application
		assert.Equal(t, admission.StatusApproved, app.Status)
		assert.Equal(t, "welcome", app.Comments)
		assert.Equal(t, admin.ID, app.ReviewedBy)
		require.NotNil(t, app.ReviewDate)
		assert.Equal(t, now, *app.ReviewDate)

		require.NotNil(t, res.Parent)
		assert.Equal(t, user.RoleParent, res.Parent.Role)
		assert.Equal(t, "mama@test.cd", res.Parent.Email)
		assert.False(t, res.Parent.IsEmailVerified)

		require.NotNil(t, res.Student)
		st := res.Student
		assert.Equal(t, "Nursery", st.Grade)
		assert.Equal(t, "B", st.Section)
		assert.Equal(t, res.Parent.ID, st.ParentID)
		assert.Equal(t, core.AdmissionApproved, st.AdmissionStatus)
		assert.Equal(t, student.FeeUnpaid, st.FeeStatus)
		assert.Regexp(t, `^AK\d{4}$`, st.RollNumber)
		assert.Equal(t, req.EmergencyContact, st.EmergencyContact)

		// persisted
		stored, err := env.AdmissionSvc.Get(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, admission.StatusApproved, stored.Status)
		children, err := env.StudentSvc.ByParent(ctx, res.Parent.ID)
		require.NoError(t, err)
		assert.Len(t, children, 1)

		// credentials mailed to the new parent
		msgs := emailsvc.LastSentMessages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "mama@test.cd", msgs[0].To[0].Address)
		assert.Equal(t, "account_credentials", msgs[0].TemplateName)

		// event published after commit
		evts := env.Events.Events(core.EventAdmissionReviewed)
		assert.Len(t, evts, 1)
	})

	t.Run("siblings share the parent account", func(t *testing.T) {
		env, admin, req := setup(t)
		sibling, err := env.AdmissionSvc.Submit(ctx, testutil.NewApplication("Baraka", "Kabila", "Grade 2", "mama@test.cd"))
		require.NoError(t, err)

		res1, err := env.AdmissionSvc.Review(ctx, req.ID, admission.ReviewRequest{Status: admission.StatusApproved, Section: "A"}, admin)
		require.NoError(t, err)
		res2, err := env.AdmissionSvc.Review(ctx, sibling.ID, admission.ReviewRequest{Status: admission.StatusApproved, Section: "C"}, admin)
		require.NoError(t, err)

		assert.Equal(t, res1.Parent.ID, res2.Parent.ID)
		parents, err := env.UserSvc.Query(ctx, user.QueryFilter{Role: user.RoleParent})
		require.NoError(t, err)
		assert.Len(t, parents, 1)
		children, err := env.StudentSvc.ByParent(ctx, res1.Parent.ID)
		require.NoError(t, err)
		assert.Len(t, children, 2)

		// only the first approval created the account
		assert.Len(t, emailsvc.LastSentMessages(), 1)
	})

	t.Run("non approval writes the decision only", func(t *testing.T) {
		env, admin, req := setup(t)

		res, err := env.AdmissionSvc.Review(ctx, req.ID, admission.ReviewRequest{Status: admission.StatusRejected, Comments: "full"}, admin)
		require.NoError(t, err)
		assert.Equal(t, admission.StatusRejected, res.Application.Status)
		assert.Nil(t, res.Student)
		assert.Nil(t, res.Parent)

		students, total, err := env.StudentSvc.Query(ctx, student.QueryFilter{})
		require.NoError(t, err)
		assert.Empty(t, students)
		assert.Zero(t, total)
		_, err = env.UserSvc.GetByEmail(ctx, "mama@test.cd")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("already reviewed", func(t *testing.T) {
		env, admin, req := setup(t)
		_, err := env.AdmissionSvc.Review(ctx, req.ID, admission.ReviewRequest{Status: admission.StatusWaitlisted}, admin)
		require.NoError(t, err)

		_, err = env.AdmissionSvc.Review(ctx, req.ID, admission.ReviewRequest{Status: admission.StatusApproved, Section: "B"}, admin)
		require.Error(t, err)
		assert.True(t, core.IsConflict(err))
		assert.Equal(t, "application is already waitlisted", err.Error())

		stored, err := env.AdmissionSvc.Get(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, admission.StatusWaitlisted, stored.Status)
		_, total, err := env.StudentSvc.Query(ctx, student.QueryFilter{})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("invalid decisions are rejected before any write", func(t *testing.T) {
		env, admin, req := setup(t)

		tests := []struct {
			name      string
			review    admission.ReviewRequest
			wantField string
		}{
			{name: "missing section", review: admission.ReviewRequest{Status: admission.StatusApproved, Section: "  "}, wantField: "section"},
			{name: "pending", review: admission.ReviewRequest{Status: admission.StatusPending}, wantField: "status"},
			{name: "unknown status", review: admission.ReviewRequest{Status: "ENROLLED"}, wantField: "status"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := env.AdmissionSvc.Review(ctx, req.ID, tt.review, admin)
				require.Error(t, err)
				require.True(t, core.IsValidation(err))
				vErr := err.(*core.ValidationError)
				require.Len(t, vErr.Fields, 1)
				assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
			})
		}

		stored, err := env.AdmissionSvc.Get(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, admission.StatusPending, stored.Status)
		assert.Empty(t, env.Events.Events(""))
	})

	t.Run("not found", func(t *testing.T) {
		env, admin, _ := setup(t)
		_, err := env.AdmissionSvc.Review(ctx, "nope", admission.ReviewRequest{Status: admission.StatusRejected}, admin)
		assert.Equal(t, admission.ErrNotFound, err)
	})

	t.Run("failed enrollment rolls the decision back", func(t *testing.T) {
		env, admin, req := setup(t)
		studentSvc := student.NewService(failingStudentRepository{env.StudentRepo}, env.UserSvc, env.DB)
		admissionSvc := admission.NewService(env.AdmissionRepo, env.UserSvc, studentSvc, env.DB, env.Events, env.Logger)

		_, err := admissionSvc.Review(ctx, req.ID, admission.ReviewRequest{Status: admission.StatusApproved, Section: "B"}, admin)
		require.Error(t, err)

		stored, err := env.AdmissionSvc.Get(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, admission.StatusPending, stored.Status)
		_, err = env.UserSvc.GetByEmail(ctx, "mama@test.cd")
		assert.Equal(t, user.ErrNotFound, err)
		assert.Empty(t, emailsvc.LastSentMessages())
		assert.Empty(t, env.Events.Events(""))
	})

	t.Run("concurrent review wins", func(t *testing.T) {
		env, admin, req := setup(t)
		repo := &racedAdmissionRepository{Repository: env.AdmissionRepo, reviewer: "usr-other@test.cd"}
		admissionSvc := admission.NewService(repo, env.UserSvc, env.StudentSvc, env.DB, env.Events, env.Logger)

		_, err := admissionSvc.Review(ctx, req.ID, admission.ReviewRequest{Status: admission.StatusApproved, Section: "B"}, admin)
		assert.Equal(t, admission.ErrAlreadyReviewed, err)
		assert.True(t, core.IsConflict(err))

		// the other reviewer's decision stands
		stored, err := env.AdmissionSvc.Get(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, admission.StatusWaitlisted, stored.Status)
		assert.Equal(t, "usr-other@test.cd", stored.ReviewedBy)

		_, err = env.UserSvc.GetByEmail(ctx, "mama@test.cd")
		assert.Equal(t, user.ErrNotFound, err)
		students, err := env.StudentSvc.Roster(ctx, req.StudentInfo.Grade, "B")
		require.NoError(t, err)
		assert.Empty(t, students)
		assert.Empty(t, emailsvc.LastSentMessages())
		assert.Empty(t, env.Events.Events(""))
	})
}

// racedAdmissionRepository lets another reviewer decide the request right before Decide runs.
type racedAdmissionRepository struct {
	admission.Repository
	reviewer string
}

func (repo *racedAdmissionRepository) Decide(ctx context.Context, id string, d admission.Decision, exec ...core.DBExecutor) (admission.Request, error) {
	if _, err := repo.Repository.Decide(ctx, id, admission.Decision{
		Status:     admission.StatusWaitlisted,
		ReviewedBy: repo.reviewer,
		ReviewDate: d.ReviewDate,
	}); err != nil {
		return admission.Request{}, err
	}
	return repo.Repository.Decide(ctx, id, d, exec...)
}

type failingStudentRepository struct {
	student.Repository
}

func (failingStudentRepository) Create(context.Context, student.Student, ...core.DBExecutor) (student.Student, error) {
	return student.Student{}, errors.New("connection reset")
}
