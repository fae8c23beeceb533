package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/testutil"
)

func newJobRepo(t *testing.T) (*JobRepository, *gorm.DB, *model.User) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	return NewJobRepository(db), db, testutil.TestUser(t, db)
}

func TestJobRepository_Lifecycle(t *testing.T) {
	repo, _, user := newJobRepo(t)

	job := &model.BillJob{
		UserID:      user.ID,
		PeriodStart: testutil.Date(2024, time.February, 1),
		PeriodEnd:   testutil.Date(2024, time.February, 29),
		Source:      model.JobSourceCron,
		Status:      model.JobStatusQueued,
	}
	require.NoError(t, repo.Create(job))
	require.NotZero(t, job.ID)

	require.NoError(t, repo.UpdateStep(job.ID, "rendering"))
	require.NoError(t, repo.UpdateFields(job.ID, map[string]interface{}{
		"status":   model.JobStatusProcessing,
		"attempts": 1,
	}))

	found, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, found.Status)
	assert.Equal(t, "rendering", found.CurrentStep)
	assert.Equal(t, 1, found.Attempts)
	assert.Equal(t, model.JobSourceCron, found.Source)

	found.Status = model.JobStatusCompleted
	found.TotalAmount = "123.45"
	require.NoError(t, repo.Update(found))

	done, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, done.Status)
	assert.Equal(t, "123.45", done.TotalAmount)

	_, err = repo.GetByID(99999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestJobRepository_ListByUserID_Pages(t *testing.T) {
	repo, db, user := newJobRepo(t)
	other := testutil.TestUser(t, db)

	var ids []int64
	for i := 0; i < 3; i++ {
		ids = append(ids, testutil.TestBillJob(t, db, user.ID, model.JobStatusCompleted).ID)
	}
	testutil.TestBillJob(t, db, other.ID, model.JobStatusCompleted)

	first, total, err := repo.ListByUserID(user.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, first, 2)

	second, _, err := repo.ListByUserID(user.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)

	seen := []int64{first[0].ID, first[1].ID, second[0].ID}
	assert.ElementsMatch(t, ids, seen)
}

func TestJobRepository_GetRetryableJobs(t *testing.T) {
	repo, db, user := newJobRepo(t)

	retry := testutil.TestBillJob(t, db, user.ID, model.JobStatusFailed)
	exhausted := testutil.TestBillJob(t, db, user.ID, model.JobStatusFailed)
	require.NoError(t, repo.UpdateFields(exhausted.ID, map[string]interface{}{"attempts": 3}))
	testutil.TestBillJob(t, db, user.ID, model.JobStatusCompleted)
	hopeless := testutil.TestBillJob(t, db, user.ID, model.JobStatusFailed)
	require.NoError(t, repo.UpdateFields(hopeless.ID, map[string]interface{}{"no_retry": true}))

	jobs, err := repo.GetRetryableJobs(3, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, retry.ID, jobs[0].ID)

	jobs, err = repo.GetRetryableJobs(4, 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}
