// Package testutil assembles the services over the in-memory store and creates fixtures.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/admission"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/services/events"
	"github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database/inmem"
)

type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Logger     core.Logger
	Events     *eventsvc.Recorder
	Validate   *validator.Validate
	Translator ut.Translator

	UserRepo       user.Repository
	AdmissionRepo  admission.Repository
	StudentRepo    student.Repository
	TeacherRepo    teacher.Repository
	AttendanceRepo attendance.Repository

	UserSvc       *user.Service
	StudentSvc    *student.Service
	TeacherSvc    *teacher.Service
	AdmissionSvc  *admission.Service
	AttendanceSvc *attendance.Service
}

func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Storage = "memory"
	return conf
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	teacher.InitValidators(validate, translator)
	admission.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

// NewEnv wires every service over a fresh in-memory store, a synchronous email mock and an event recorder.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	env := &Env{
		Conf:   NewConfig(),
		DB:     inmemdb.Open(),
		Logger: logsvc.NewZeroLogger(zerolog.Nop()),
		Events: new(eventsvc.Recorder),
	}
	env.Validate, env.Translator = NewValidator()

	env.UserRepo = inmemdb.NewUserRepository(env.DB)
	env.AdmissionRepo = inmemdb.NewAdmissionRepository(env.DB)
	env.StudentRepo = inmemdb.NewStudentRepository(env.DB)
	env.TeacherRepo = inmemdb.NewTeacherRepository(env.DB)
	env.AttendanceRepo = inmemdb.NewAttendanceRepository(env.DB)

	mailSvc := emailsvc.NewConsoleServiceMock(env.Conf, env.Logger)
	emailsvc.ClearSentMessages()

	env.UserSvc = user.NewService(env.UserRepo, mailSvc, env.Conf)
	env.StudentSvc = student.NewService(env.StudentRepo, env.UserSvc, env.DB)
	env.TeacherSvc = teacher.NewService(env.TeacherRepo, env.UserSvc, env.DB)
	env.AdmissionSvc = admission.NewService(env.AdmissionRepo, env.UserSvc, env.StudentSvc, env.DB, env.Events, env.Logger)
	env.AttendanceSvc = attendance.NewService(env.AttendanceRepo, env.StudentSvc, env.TeacherSvc, env.DB, env.Events, env.Logger)
	return env
}

// FreezeTime sets core.NowFunc to return `now` for the rest of the test.
func FreezeTime(t *testing.T, now time.Time) {
	t.Helper()
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = time.Now })
}

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd string, role user.Role, isActive bool) user.User {
	t.Helper()

	now := core.NowFunc().UTC()
	usr := user.User{
		ID:              "usr-" + email,
		Name:            name,
		Email:           email,
		Role:            role,
		IsActive:        isActive,
		IsEmailVerified: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.Create(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(t *testing.T, repo student.Repository, id, firstName, grade, section, parentID string) student.Student {
	t.Helper()

	now := core.NowFunc().UTC()
	st := student.Student{
		ID:              id,
		FirstName:       firstName,
		LastName:        "Doe",
		DateOfBirth:     core.NewDate(time.Date(2018, 5, 4, 0, 0, 0, 0, time.UTC)),
		Gender:          core.GenderOther,
		Address:         "1 School Road",
		AdmissionDate:   now,
		Grade:           grade,
		Section:         section,
		RollNumber:      "RN-" + id,
		ParentID:        parentID,
		AdmissionStatus: core.AdmissionApproved,
		FeeStatus:       student.FeeUnpaid,
		EmergencyContact: core.EmergencyContact{
			Name:     "Jane Doe",
			Relation: "Aunt",
			Phone:    "+243000000000",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	st, err := repo.Create(context.Background(), st)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return st
}

func CreateTeacher(t *testing.T, repo teacher.Repository, usr user.User, grades, sections []string) teacher.Teacher {
	t.Helper()

	now := core.NowFunc().UTC()
	tchr, err := repo.Create(context.Background(), teacher.Teacher{
		ID:             "tch-" + usr.ID,
		UserID:         usr.ID,
		Designation:    "Class Teacher",
		Qualifications: []string{"B.Ed"},
		Subjects:       []string{"Maths"},
		Grades:         grades,
		Sections:       sections,
		JoiningDate:    core.NewDate(now),
		EmploymentType: teacher.FullTime,
		Salary:         1000,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tchr
}

func NewApplication(firstName, lastName, grade, parentEmail string) admission.NewApplication {
	return admission.NewApplication{
		StudentInfo: admission.StudentInfo{
			FirstName:   firstName,
			LastName:    lastName,
			DateOfBirth: core.NewDate(time.Date(2019, 1, 15, 0, 0, 0, 0, time.UTC)),
			Gender:      core.GenderFemale,
			Grade:       grade,
		},
		ParentInfo: admission.ParentInfo{
			Name:     "Parent " + lastName,
			Email:    parentEmail,
			Phone:    "+243810000000",
			Relation: "Mother",
		},
		EmergencyContact: core.EmergencyContact{
			Name:     "Uncle " + lastName,
			Relation: "Uncle",
			Phone:    "+243820000000",
		},
		Address: "12 Avenue du Commerce",
	}
}
