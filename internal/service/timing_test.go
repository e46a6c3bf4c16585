package service

import (
	"coding_steps_backend/internal/model"
	"coding_steps_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func ptr(t time.Time) *time.Time { return &t }

func TestCheckingTime(t *testing.T) {
	subs := []model.Submission{
		{SubmittedAt: at(60), CheckedAt: ptr(at(90))},
		{SubmittedAt: at(200), CheckedAt: ptr(at(260))},
	}
	d, err := CheckingTime(at(1000), subs)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	// 最后一次提交仍在评分中，计入 now - submittedAt
	subs = append(subs, model.Submission{SubmittedAt: at(300)})
	d, err = CheckingTime(at(320), subs)
	require.NoError(t, err)
	assert.Equal(t, 110*time.Second, d)

	d, err = CheckingTime(at(0), nil)
	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestCheckingTimeInvertedInterval(t *testing.T) {
	_, err := CheckingTime(at(100), []model.Submission{{SubmittedAt: at(50), CheckedAt: ptr(at(40))}})
	assert.ErrorIs(t, err, util.ErrInvalidTimingRecord)

	_, err = ActiveElapsed(at(100), at(0), []model.Submission{{SubmittedAt: at(50), CheckedAt: ptr(at(40))}})
	assert.ErrorIs(t, err, util.ErrInvalidTimingRecord)

	_, err = ActiveElapsed(at(0), at(10), nil)
	assert.ErrorIs(t, err, util.ErrInvalidTimingRecord)
}

func TestActiveElapsedPausesWhileGrading(t *testing.T) {
	subs := []model.Submission{{SubmittedAt: at(60)}}

	// 等待评分期间有效时间不再增长
	a, err := ActiveElapsed(at(100), at(0), subs)
	require.NoError(t, err)
	b, err := ActiveElapsed(at(500), at(0), subs)
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, a)
	assert.Equal(t, a, b)

	// 评分结束后继续计时
	subs[0].CheckedAt = ptr(at(500))
	c, err := ActiveElapsed(at(530), at(0), subs)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, c)
}

func TestActiveElapsedAsOfEarlierInstant(t *testing.T) {
	// finish 之后才被评分：截至 finishedAt 的用时不受评分影响
	subs := []model.Submission{
		{SubmittedAt: at(30), CheckedAt: ptr(at(50))},
		{SubmittedAt: at(200), CheckedAt: ptr(at(900))},
	}
	d, err := ActiveElapsed(at(200), at(0), subs)
	require.NoError(t, err)
	assert.Equal(t, 180*time.Second, d)
}

func TestCheckingTimeMonotonicAcrossResolves(t *testing.T) {
	var subs []model.Submission
	var prev time.Duration
	now := 0
	for i := 0; i < 5; i++ {
		now += 40
		subs = append(subs, model.Submission{SubmittedAt: at(now)})
		now += 15 * (i + 1)
		pending, err := CheckingTime(at(now), subs)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, pending, prev)

		subs[len(subs)-1].CheckedAt = ptr(at(now))
		resolved, err := CheckingTime(at(now), subs)
		require.NoError(t, err)
		assert.Equal(t, pending, resolved)
		prev = resolved
	}
}

func TestCheckingTimeOverlappingWaits(t *testing.T) {
	// 第一次提交还在等待时又提交了一次：重叠的等待只计一次
	subs := []model.Submission{
		{SubmittedAt: at(10), CheckedAt: ptr(at(100))},
		{SubmittedAt: at(20)},
	}
	d, err := CheckingTime(at(100), subs)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	a, err := ActiveElapsed(at(100), at(0), subs)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, a)

	// 仍在等待第二次提交，计时保持暂停
	a, err = ActiveElapsed(at(400), at(0), subs)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, a)

	subs[1].CheckedAt = ptr(at(400))
	d, err = CheckingTime(at(1000), subs)
	require.NoError(t, err)
	assert.Equal(t, 390*time.Second, d)
	a, err = ActiveElapsed(at(1000), at(0), subs)
	require.NoError(t, err)
	assert.Equal(t, 610*time.Second, a)
}

func TestCheckingTimeEarlierWaitEndsAtLaterDecision(t *testing.T) {
	// 只评了较新的那次提交，较早的等待在该决定落地时结束
	subs := []model.Submission{
		{SubmittedAt: at(10)},
		{SubmittedAt: at(20), CheckedAt: ptr(at(100))},
	}
	d, err := CheckingTime(at(500), subs)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	a, err := ActiveElapsed(at(500), at(0), subs)
	require.NoError(t, err)
	assert.Equal(t, 410*time.Second, a)
}

func TestActiveElapsedWaitBeforeStart(t *testing.T) {
	// 等待时间超过作答时间说明记录本身有问题
	subs := []model.Submission{{SubmittedAt: at(-100), CheckedAt: ptr(at(50))}}
	_, err := ActiveElapsed(at(60), at(0), subs)
	assert.ErrorIs(t, err, util.ErrInvalidTimingRecord)
}
