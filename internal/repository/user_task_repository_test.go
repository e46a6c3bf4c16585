package repository

import (
	"coding_steps_backend/internal/model"
	"coding_steps_backend/internal/testutil"
	"coding_steps_backend/internal/util"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *UserTaskRepository {
	return NewUserTaskRepository(testutil.NewTestDB(t), RetryConfig{
		MaxAttempts:  20,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	})
}

func newRecord(learnerID uint, taskID string) *model.UserTask {
	return &model.UserTask{
		LearnerID: learnerID,
		TaskID:    taskID,
		Sequence:  1,
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
		Version:   1,
	}
}

func TestFindOrCreateIsIdempotent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	first, created, err := repo.FindOrCreate(ctx, newRecord(1, "1a"))
	require.NoError(t, err)
	assert.True(t, created)

	later := newRecord(1, "1a")
	later.StartedAt = first.StartedAt.Add(time.Hour)
	second, created, err := repo.FindOrCreate(ctx, later)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.StartedAt.Equal(second.StartedAt))

	var count int64
	require.NoError(t, repo.DB.Model(&model.UserTask{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFindMissing(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.Find(context.Background(), 1, "nope")
	assert.ErrorIs(t, err, util.ErrUserTaskNotFound)

	_, err = repo.Mutate(context.Background(), 1, "nope", func(ut *model.UserTask) error { return nil })
	assert.ErrorIs(t, err, util.ErrUserTaskNotFound)
}

func TestMutateBumpsVersion(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	_, _, err := repo.FindOrCreate(ctx, newRecord(1, "1a"))
	require.NoError(t, err)

	ut, err := repo.Mutate(ctx, 1, "1a", func(ut *model.UserTask) error {
		ut.SavedCode = "print('draft')"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(2), ut.Version)

	stored, err := repo.Find(ctx, 1, "1a")
	require.NoError(t, err)
	assert.Equal(t, "print('draft')", stored.SavedCode)
	assert.Equal(t, uint(2), stored.Version)
}

func TestMutateCallbackErrorDoesNotWrite(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	_, _, err := repo.FindOrCreate(ctx, newRecord(1, "1a"))
	require.NoError(t, err)

	_, err = repo.Mutate(ctx, 1, "1a", func(ut *model.UserTask) error {
		ut.SavedCode = "lost"
		return util.ErrSubmissionRejected
	})
	assert.ErrorIs(t, err, util.ErrSubmissionRejected)

	_, err = repo.Mutate(ctx, 1, "1a", func(ut *model.UserTask) error {
		ut.SavedCode = "also lost"
		return ErrNoChange
	})
	require.NoError(t, err)

	stored, err := repo.Find(ctx, 1, "1a")
	require.NoError(t, err)
	assert.Empty(t, stored.SavedCode)
	assert.Equal(t, uint(1), stored.Version)
}

func TestMutateRetriesOnStaleVersion(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	_, _, err := repo.FindOrCreate(ctx, newRecord(1, "1a"))
	require.NoError(t, err)

	calls := 0
	ut, err := repo.Mutate(ctx, 1, "1a", func(ut *model.UserTask) error {
		calls++
		if calls == 1 {
			// 模拟另一个写入者在读取之后抢先提交
			require.NoError(t, repo.DB.Model(&model.UserTask{}).
				Where("id = ?", ut.ID).
				Updates(map[string]interface{}{"version": ut.Version + 1, "saved_code": "other"}).Error)
		}
		ut.Submissions = append(ut.Submissions, model.Submission{Code: "mine", SubmittedAt: time.Now()})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "other", ut.SavedCode)
	assert.Len(t, ut.Submissions, 1)
	assert.Equal(t, uint(3), ut.Version)
}

func TestMutateGivesUpAfterMaxAttempts(t *testing.T) {
	repo := NewUserTaskRepository(testutil.NewTestDB(t), RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})
	ctx := context.Background()
	_, _, err := repo.FindOrCreate(ctx, newRecord(1, "1a"))
	require.NoError(t, err)

	calls := 0
	_, err = repo.Mutate(ctx, 1, "1a", func(ut *model.UserTask) error {
		calls++
		return repo.DB.Model(&model.UserTask{}).Where("id = ?", ut.ID).Update("version", ut.Version+1).Error
	})
	assert.ErrorIs(t, err, util.ErrVersionConflict)
	assert.Equal(t, 3, calls)
	assert.True(t, util.Classify(err).Retryable)
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	_, _, err := repo.FindOrCreate(ctx, newRecord(1, "1a"))
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Mutate(ctx, 1, "1a", func(ut *model.UserTask) error {
				ut.Submissions = append(ut.Submissions, model.Submission{Code: fmt.Sprintf("code %d", i), SubmittedAt: time.Now()})
				return nil
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := repo.Find(ctx, 1, "1a")
	require.NoError(t, err)
	assert.Len(t, stored.Submissions, writers)
	assert.Equal(t, uint(1+writers), stored.Version)
}

func TestListQueries(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	for i, id := range []string{"2a", "1a", "1b"} {
		rec := newRecord(1, id)
		rec.Sequence = map[string]int{"1a": 1, "1b": 2, "2a": 3}[id]
		_, _, err := repo.FindOrCreate(ctx, rec)
		require.NoError(t, err)
		if i < 2 {
			_, err = repo.Mutate(ctx, 1, id, func(ut *model.UserTask) error {
				ut.Completed = true
				return nil
			})
			require.NoError(t, err)
		}
	}
	_, err := repo.Mutate(ctx, 1, "1b", func(ut *model.UserTask) error {
		ut.BeingGraded = true
		return nil
	})
	require.NoError(t, err)

	done, err := repo.ListCompletedByLearner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, done, 2)
	assert.Equal(t, "1a", done[0].TaskID)
	assert.Equal(t, "2a", done[1].TaskID)

	other, err := repo.ListCompletedByLearner(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other)

	pending, err := repo.ListBeingGraded(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "1b", pending[0].TaskID)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	var netErr net.Error = timeoutErr{}
	assert.True(t, isRetryable(util.ErrVersionConflict))
	assert.True(t, isRetryable(fmt.Errorf("query: %w", netErr)))
	assert.True(t, isRetryable(&mysql.MySQLError{Number: 1213}))
	assert.False(t, isRetryable(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isRetryable(util.ErrSubmissionRejected))
	assert.False(t, isRetryable(errors.New("boom")))
}

func TestFinishWrapsExhaustedTransientErrors(t *testing.T) {
	_, err := finish[*model.UserTask](context.Background(), "find", nil, errors.New("retry: max attempts"), timeoutErr{})
	assert.ErrorIs(t, err, util.ErrStorageUnavailable)
	assert.Equal(t, "storage_unavailable", util.Classify(err).Kind)
}
