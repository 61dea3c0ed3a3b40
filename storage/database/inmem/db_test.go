package inmemdb_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/admission"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/storage/database/inmem"
)

var errAborted = errors.New("aborted")

func TestDB_WithinTx(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (*inmemdb.DB, admission.Repository) {
		db := inmemdb.Open()
		repo := inmemdb.NewAdmissionRepository(db)
		_, err := repo.Create(ctx, admission.Request{ID: "pending", Status: admission.StatusPending})
		require.NoError(t, err)
		return db, repo
	}

	t.Run("rollback keeps writes made outside the transaction", func(t *testing.T) {
		db, repo := setup(t)

		err := db.WithinTx(ctx, func(exec core.DBExecutor) error {
			_, err := repo.Decide(ctx, "pending", admission.Decision{Status: admission.StatusRejected, ReviewDate: now}, exec)
			require.NoError(t, err)
			_, err = repo.Create(ctx, admission.Request{ID: "in-tx", Status: admission.StatusPending}, exec)
			require.NoError(t, err)

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = repo.Create(ctx, admission.Request{ID: "outside", Status: admission.StatusPending})
			}()
			wg.Wait()
			return errAborted
		})
		assert.Equal(t, errAborted, err)

		req, err := repo.Get(ctx, "pending")
		require.NoError(t, err)
		assert.Equal(t, admission.StatusPending, req.Status)
		assert.Nil(t, req.ReviewDate)

		_, err = repo.Get(ctx, "in-tx")
		assert.Equal(t, admission.ErrNotFound, err)

		_, err = repo.Get(ctx, "outside")
		assert.NoError(t, err)
	})

	t.Run("commit", func(t *testing.T) {
		db, repo := setup(t)

		err := db.WithinTx(ctx, func(exec core.DBExecutor) error {
			_, err := repo.Decide(ctx, "pending", admission.Decision{Status: admission.StatusRejected, ReviewDate: now}, exec)
			return err
		})
		require.NoError(t, err)

		req, err := repo.Get(ctx, "pending")
		require.NoError(t, err)
		assert.Equal(t, admission.StatusRejected, req.Status)
	})

	t.Run("rollback restores cascaded deletes", func(t *testing.T) {
		db := inmemdb.Open()
		usrRepo := inmemdb.NewUserRepository(db)
		tchRepo := inmemdb.NewTeacherRepository(db)
		_, err := usrRepo.Create(ctx, user.User{ID: "u1", Email: "teacher@test.cd", Role: user.RoleTeacher})
		require.NoError(t, err)
		_, err = tchRepo.Create(ctx, teacher.Teacher{ID: "t1", UserID: "u1"})
		require.NoError(t, err)

		err = db.WithinTx(ctx, func(exec core.DBExecutor) error {
			require.NoError(t, tchRepo.Delete(ctx, "t1", exec))
			require.NoError(t, usrRepo.Delete(ctx, "u1", exec))
			return errAborted
		})
		assert.Equal(t, errAborted, err)

		_, err = usrRepo.Get(ctx, user.GetFilter{ID: "u1"})
		assert.NoError(t, err)
		_, err = tchRepo.Get(ctx, teacher.GetFilter{ID: "t1"})
		assert.NoError(t, err)
	})
}

func TestAttendanceRepository_BulkWrite(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewAttendanceRepository(inmemdb.Open())
	today := core.NewDate(time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC))

	first := attendance.Attendance{ID: "a1", StudentID: "s1", Date: today, Status: attendance.StatusAbsent, MarkedBy: "u1"}
	inserted, updated, err := repo.BulkWrite(ctx, []attendance.Attendance{first}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 0, updated)

	// same student & day under a new ID: the existing row is updated
	second := attendance.Attendance{ID: "a2", StudentID: "s1", Date: today, Status: attendance.StatusPresent, MarkedBy: "u2"}
	inserted, updated, err = repo.BulkWrite(ctx, []attendance.Attendance{second}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 1, updated)

	rows, total, err := repo.Query(ctx, attendance.QueryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "a1", rows[0].ID)
	assert.Equal(t, attendance.StatusPresent, rows[0].Status)
	assert.Equal(t, "u2", rows[0].MarkedBy)

	// rows gone since they were loaded are skipped
	inserted, updated, err = repo.BulkWrite(ctx, nil, []attendance.Attendance{{ID: "gone", StudentID: "s2", Date: today}})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 0, updated)
}
