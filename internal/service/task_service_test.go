package service

import (
	"coding_steps_backend/internal/config"
	"coding_steps_backend/internal/util"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.tasks.Start(ctx, 1, "1a")
	require.NoError(t, err)
	assert.True(t, first.Started)
	assert.False(t, first.CanContinue)
	assert.Equal(t, "1_1a", first.UserTaskID)
	assert.Equal(t, 180, first.TimeLimit)

	f.clock.Advance(45 * time.Second)
	second, err := f.tasks.Start(ctx, 1, "1a")
	require.NoError(t, err)
	assert.True(t, second.CanContinue)
	assert.True(t, first.StartedAt.Equal(second.StartedAt))
	assert.Equal(t, int64(45000), second.ActiveElapsed)
	assert.False(t, second.TimeLimitReached)

	var count int64
	require.NoError(t, f.repo.DB.Table("user_tasks").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = f.tasks.Start(ctx, 1, "nope")
	assert.ErrorIs(t, err, util.ErrInvalidTaskID)
}

func TestStartResumesPausedTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Start(ctx, 1, "1a")
	require.NoError(t, err)
	f.clock.Advance(30 * time.Second)
	_, err = f.grading.SubmitForGrading(ctx, 1, "1a", passingCode)
	require.NoError(t, err)
	f.clock.Advance(90 * time.Second)

	resumed, err := f.tasks.Start(ctx, 1, "1a")
	require.NoError(t, err)
	assert.True(t, resumed.BeingGraded)
	assert.Equal(t, int64(90000), resumed.CheckingTime)
	assert.Equal(t, int64(30000), resumed.ActiveElapsed)
}

func TestNextTaskWalksCurriculum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	next, err := f.tasks.NextTask(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "wv0", next.ID)

	_, err = f.tasks.SubmitSimple(ctx, 1, "wv0", SimpleSubmission{})
	require.NoError(t, err)

	next, err = f.tasks.NextTask(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1a", next.ID)

	// 课程的最后一题完成后没有下一题
	tasks := f.tasks.Curriculum.Tasks()
	last := tasks[len(tasks)-1]
	_, err = f.tasks.Start(ctx, 1, last.ID)
	require.NoError(t, err)
	_, err = f.grading.SubmitForGrading(ctx, 1, last.ID, last.Solution)
	require.NoError(t, err)
	require.NoError(t, f.grading.Resolve(ctx, 99, ResolveRequest{LearnerID: 1, TaskID: last.ID, Passed: true}))

	_, err = f.tasks.NextTask(ctx, 1)
	assert.ErrorIs(t, err, util.ErrCurriculumExhausted)
}

func TestSubmitSimple(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started := t0.Add(-time.Minute)
	view, err := f.tasks.SubmitSimple(ctx, 1, "mc1", SimpleSubmission{
		Data:      json.RawMessage(`{"choice":1}`),
		StartedAt: &started,
	})
	require.NoError(t, err)
	assert.True(t, view.Completed)

	ut := f.record(t, 1, "mc1")
	assert.JSONEq(t, `{"choice":1}`, string(ut.Data))
	assert.True(t, ut.StartedAt.Equal(started))
	version := ut.Version

	// 重复提交不修改已完成记录
	_, err = f.tasks.SubmitSimple(ctx, 1, "mc1", SimpleSubmission{Data: json.RawMessage(`{"choice":3}`)})
	require.NoError(t, err)
	ut = f.record(t, 1, "mc1")
	assert.JSONEq(t, `{"choice":1}`, string(ut.Data))
	assert.Equal(t, version, ut.Version)

	_, err = f.tasks.SubmitSimple(ctx, 1, "1a", SimpleSubmission{})
	assert.ErrorIs(t, err, util.ErrVariantMismatch)

	finished := started.Add(-time.Second)
	_, err = f.tasks.SubmitSimple(ctx, 1, "sa1", SimpleSubmission{StartedAt: &started, FinishedAt: &finished})
	assert.ErrorIs(t, err, util.ErrInvalidTimingRecord)
}

func TestSubmitSimpleAfterStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Start(ctx, 1, "sa1")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	_, err = f.tasks.SubmitSimple(ctx, 1, "sa1", SimpleSubmission{Data: json.RawMessage(`"a named box for a value"`)})
	require.NoError(t, err)

	ut := f.record(t, 1, "sa1")
	assert.True(t, ut.Completed)
	assert.True(t, ut.StartedAt.Equal(t0))
	require.NotNil(t, ut.FinishedAt)
	assert.True(t, ut.FinishedAt.Equal(t0.Add(time.Minute)))
	assert.GreaterOrEqual(t, f.cache.writes, 1)
}

func TestDrafts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.tasks.SaveDraft(ctx, 1, "1a", "print(")
	assert.ErrorIs(t, err, util.ErrUserTaskNotFound)
	_, err = f.tasks.GetDraft(ctx, 1, "1a")
	assert.ErrorIs(t, err, util.ErrUserTaskNotFound)

	_, err = f.tasks.Start(ctx, 1, "1a")
	require.NoError(t, err)
	saveAt := f.clock.Advance(5 * time.Second)
	require.NoError(t, f.tasks.SaveDraft(ctx, 1, "1a", "print(\"I'm"))

	draft, err := f.tasks.GetDraft(ctx, 1, "1a")
	require.NoError(t, err)
	assert.Equal(t, "print(\"I'm", draft.SavedCode)
	require.NotNil(t, draft.LastSaveAt)
	assert.True(t, draft.LastSaveAt.Equal(saveAt))

	// 草稿不产生提交记录
	assert.Empty(t, f.record(t, 1, "1a").Submissions)

	err = f.tasks.SaveDraft(ctx, 1, "mc1", "x")
	assert.ErrorIs(t, err, util.ErrVariantMismatch)
}

func TestPollStatusUsesCacheUntilMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.PollStatus(ctx, 1, "1a")
	assert.ErrorIs(t, err, util.ErrUserTaskNotFound)

	_, err = f.tasks.Start(ctx, 1, "1a")
	require.NoError(t, err)
	_, err = f.tasks.PollStatus(ctx, 1, "1a")
	require.NoError(t, err)
	cachedUT, cached := f.cache.Get(ctx, 1, "1a")
	require.True(t, cached)
	assert.Empty(t, cachedUT.Submissions)

	// 写入后缓存直接换成提交后的记录
	_, err = f.grading.SubmitForGrading(ctx, 1, "1a", passingCode)
	require.NoError(t, err)
	cachedUT, cached = f.cache.Get(ctx, 1, "1a")
	require.True(t, cached)
	assert.Len(t, cachedUT.Submissions, 1)
	assert.True(t, cachedUT.BeingGraded)

	status, err := f.tasks.PollStatus(ctx, 1, "1a")
	require.NoError(t, err)
	assert.True(t, status.BeingGraded)
	assert.Equal(t, 1, status.SubmissionCount)
}

func TestStaleReadDoesNotOverwriteNewerSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.Start(ctx, 1, "1a")
	require.NoError(t, err)
	_, err = f.grading.SubmitForGrading(ctx, 1, "1a", passingCode)
	require.NoError(t, err)

	// 轮询在评分之前读到了记录，但在评分写入缓存之后才回填
	stale := f.record(t, 1, "1a")
	require.NoError(t, f.grading.Resolve(ctx, 99, ResolveRequest{LearnerID: 1, TaskID: "1a", SubmissionIndex: 0, Passed: true}))
	f.cache.Set(ctx, stale)

	status, err := f.tasks.PollStatus(ctx, 1, "1a")
	require.NoError(t, err)
	assert.True(t, status.Completed)
	assert.False(t, status.BeingGraded)

	// 缓存被清空后也一样：之后的写入先落地，旧快照不能再进来
	f.cache = newMemoryCache()
	f.tasks.Cache = f.cache
	f.grading.Cache = f.cache
	require.NoError(t, f.tasks.SaveDraft(ctx, 1, "1a", passingCode+" # tidy"))
	f.cache.Set(ctx, stale)
	cachedUT, ok := f.cache.Get(ctx, 1, "1a")
	require.True(t, ok)
	assert.True(t, cachedUT.Completed)
	assert.Equal(t, passingCode+" # tidy", cachedUT.SavedCode)
}

func TestSaveLogArchives(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.SaveLog(ctx, 1, "1a", json.RawMessage(`[]`))
	assert.ErrorIs(t, err, util.ErrUserTaskNotFound)

	_, err = f.tasks.Start(ctx, 1, "1a")
	require.NoError(t, err)

	payload := json.RawMessage(`[{"type":"keystroke","at":1}]`)
	res, err := f.tasks.SaveLog(ctx, 1, "1a", payload)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.ArchiveURL, "/uploads/telemetry/1/1a/"))

	ut := f.record(t, 1, "1a")
	assert.JSONEq(t, string(payload), string(ut.Log))

	name := strings.TrimPrefix(res.ArchiveURL, "/uploads/")
	archived, err := os.ReadFile(filepath.Join(f.storage, filepath.FromSlash(name)))
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(archived))
}

func TestSaveLogArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	f.tasks.Storage = &LocalStorageProvider{Config: &config.StorageConfig{LocalPath: blocker}}

	_, err := f.tasks.Start(ctx, 1, "1a")
	require.NoError(t, err)
	res, err := f.tasks.SaveLog(ctx, 1, "1a", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Empty(t, res.ArchiveURL)
}
