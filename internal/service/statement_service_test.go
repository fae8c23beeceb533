package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/powerplan_server/internal/model"
	"github.com/qs3c/powerplan_server/internal/model/dto"
	"github.com/qs3c/powerplan_server/internal/pkg/billing"
	"github.com/qs3c/powerplan_server/internal/pkg/logger"
	"github.com/qs3c/powerplan_server/internal/repository"
	"github.com/qs3c/powerplan_server/internal/testutil"
)

type statementEnv struct {
	service *StatementService
	db      *gorm.DB
	queue   *fakeQueue
}

func setupStatementService(t *testing.T) *statementEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	q := &fakeQueue{}
	service := NewStatementService(
		repository.NewJobRepository(db),
		repository.NewUserPlanRepository(db),
		q, fixedClock(), logger.Discard(),
	)
	return &statementEnv{service: service, db: db, queue: q}
}

func TestStatementService_Archive(t *testing.T) {
	env := setupStatementService(t)
	user := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db)
	testutil.TestUserPlan(t, env.db, user, plan)

	resp, err := env.service.Archive(context.Background(), user.ID, &dto.PeriodQuery{Period: billing.PeriodPrevious})
	require.NoError(t, err)
	assert.NotZero(t, resp.JobID)

	require.Len(t, env.queue.messages, 1)
	msg := env.queue.messages[0]
	assert.Equal(t, resp.JobID, msg.JobID)
	assert.Equal(t, "2024-02-01", msg.PeriodStart)
	assert.Equal(t, "2024-02-29", msg.PeriodEnd)
	assert.Equal(t, 1, msg.Attempt)

	job, err := env.service.Get(user.ID, resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, model.JobSourceManual, job.Source)
}

func TestStatementService_Archive_NoPlans(t *testing.T) {
	env := setupStatementService(t)
	user := testutil.TestUser(t, env.db)

	_, err := env.service.Archive(context.Background(), user.ID, &dto.PeriodQuery{})
	assert.ErrorIs(t, err, billing.ErrEmptyInput)
	assert.Empty(t, env.queue.messages)
}

func TestStatementService_Archive_QueueFailure(t *testing.T) {
	env := setupStatementService(t)
	env.queue.err = errors.New("redis down")
	user := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db)
	testutil.TestUserPlan(t, env.db, user, plan)

	_, err := env.service.Archive(context.Background(), user.ID, &dto.PeriodQuery{})
	assert.Error(t, err)

	var job model.BillJob
	require.NoError(t, env.db.First(&job).Error)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "redis down")
}

func TestStatementService_Archive_QueueFailureLogsStatusError(t *testing.T) {
	env := setupStatementService(t)
	log, hook := logtest.NewNullLogger()
	env.service.log = logger.Component(log, "statement")
	user := testutil.TestUser(t, env.db)
	plan := testutil.TestPlan(t, env.db)
	testutil.TestUserPlan(t, env.db, user, plan)

	env.queue.err = errors.New("redis down")
	env.queue.onPush = func() {
		require.NoError(t, env.db.Migrator().DropTable(&model.BillJob{}))
	}

	_, err := env.service.Archive(context.Background(), user.ID, &dto.PeriodQuery{})
	require.Error(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "failed to mark job failed", entry.Message)
	assert.NotNil(t, entry.Data["job_id"])
	assert.NotNil(t, entry.Data[logrus.ErrorKey])
}

func TestStatementService_GetAndList(t *testing.T) {
	env := setupStatementService(t)
	user := testutil.TestUser(t, env.db)
	other := testutil.TestUser(t, env.db)
	job := testutil.TestBillJob(t, env.db, user.ID, model.JobStatusCompleted)
	testutil.TestBillJob(t, env.db, user.ID, model.JobStatusQueued)

	_, err := env.service.Get(other.ID, job.ID)
	assert.Equal(t, ErrJobNoAccess, err)

	_, err = env.service.Get(user.ID, 9999)
	assert.Equal(t, ErrJobNotFound, err)

	items, total, err := env.service.List(user.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)
}

func TestStatementService_EnqueueMonthly(t *testing.T) {
	env := setupStatementService(t)
	plan := testutil.TestPlan(t, env.db)
	a := testutil.TestUser(t, env.db)
	b := testutil.TestUser(t, env.db)
	c := testutil.TestUser(t, env.db)
	testutil.TestUserPlan(t, env.db, a, plan)
	testutil.TestUserPlan(t, env.db, a, plan)
	testutil.TestUserPlan(t, env.db, b, plan)
	testutil.TestUserPlan(t, env.db, c, plan, testutil.WithUserPlanStatus(model.UserPlanStatusNew))

	n, err := env.service.EnqueueMonthly(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, env.queue.messages, 2)
	assert.Equal(t, a.ID, env.queue.messages[0].UserID)
	assert.Equal(t, b.ID, env.queue.messages[1].UserID)

	var cronJobs int64
	env.db.Model(&model.BillJob{}).Where("source = ?", model.JobSourceCron).Count(&cronJobs)
	assert.Equal(t, int64(2), cronJobs)
}

func TestStatementService_RetryFailed(t *testing.T) {
	env := setupStatementService(t)
	user := testutil.TestUser(t, env.db)
	failed := testutil.TestBillJob(t, env.db, user.ID, model.JobStatusFailed)
	require.NoError(t, env.db.Model(failed).Updates(map[string]interface{}{"attempts": 1, "error_message": "upload timeout"}).Error)

	n, err := env.service.RetryFailed(context.Background(), 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, env.queue.messages, 1)
	assert.Equal(t, 2, env.queue.messages[0].Attempt)

	var job model.BillJob
	require.NoError(t, env.db.First(&job, failed.ID).Error)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Empty(t, job.ErrorMessage)
}
