package service

import (
	"coding_steps_backend/internal/curriculum"
	"coding_steps_backend/internal/model"
	"coding_steps_backend/internal/repository"
	"coding_steps_backend/internal/util"
	"coding_steps_backend/pkg/logger"
	"coding_steps_backend/pkg/monitoring"
	"coding_steps_backend/pkg/queue"
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// GradingService 人工评分流程：提交评分、超时交卷、管理员裁定、待评队列
type GradingService struct {
	Repo          *repository.UserTaskRepository
	Curriculum    *curriculum.Curriculum
	Cache         StatusCache
	Notifier      GradingNotifier
	MinCodeLength int
	Now           Clock
}

func NewGradingService(repo *repository.UserTaskRepository, c *curriculum.Curriculum, cache StatusCache, notifier GradingNotifier, minCodeLength int) *GradingService {
	if cache == nil {
		cache = NopStatusCache{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &GradingService{
		Repo:          repo,
		Curriculum:    c,
		Cache:         cache,
		Notifier:      notifier,
		MinCodeLength: minCodeLength,
	}
}

type SubmitResult struct {
	Accepted        bool `json:"accepted"`
	SubmissionIndex int  `json:"submissionIndex"`
}

type FinishResult struct {
	Completed       bool `json:"completed"`
	SubmissionIndex int  `json:"submissionIndex"`
}

// ResolveRequest 管理员对某次提交的裁定
type ResolveRequest struct {
	LearnerID       uint
	TaskID          string
	SubmissionIndex int
	Passed          bool
	Feedback        string
}

// PendingEntry 待评队列中的一项，附带参考答案和题目描述
type PendingEntry struct {
	ID              string            `json:"id"`
	Index           int               `json:"index"`
	UserTaskID      string            `json:"userTaskId"`
	LearnerID       uint              `json:"learnerId"`
	TaskID          string            `json:"taskId"`
	TaskType        model.TaskVariant `json:"taskType,omitempty"`
	Solution        string            `json:"solution"`
	TaskDescription string            `json:"taskDescription"`
	StartedAt       time.Time         `json:"startedAt"`
	SubmissionCount int               `json:"submissionCount"`
	Code            string            `json:"code"`
	SubmittedAt     time.Time         `json:"submittedAt"`
}

func (s *GradingService) notify(ctx context.Context, ev queue.GradingEvent) {
	ev.ID = uuid.New()
	ev.UserTaskID = model.UserTaskKey(ev.LearnerID, ev.TaskID)
	if err := s.Notifier.Publish(ctx, ev); err != nil {
		logger.Log.Warn("grading event not published",
			zap.String("type", string(ev.Type)),
			zap.String("user_task_id", ev.UserTaskID),
			zap.Error(err))
	}
}

// SubmitForGrading 形状检查通过后追加提交并进入待评状态；检查失败不修改记录
func (s *GradingService) SubmitForGrading(ctx context.Context, learnerID uint, taskID, code string) (*SubmitResult, error) {
	ctx, span := startSpan(ctx, "GradingService.SubmitForGrading", learnerID, taskID)
	defer span.End()

	task, err := lookupTask(s.Curriculum, taskID)
	if err != nil {
		return nil, err
	}
	if err := requireGradable(task); err != nil {
		return nil, err
	}

	check := task.ValidateSubmission(code, s.MinCodeLength)
	if !check.Accepted {
		monitoring.SubmissionsTotal.WithLabelValues(string(task.Type), "rejected").Inc()
		return nil, fmt.Errorf("%w: %s", util.ErrSubmissionRejected, check.Reason)
	}

	now := s.Now.now()
	index := -1
	ut, err := s.Repo.Mutate(ctx, learnerID, taskID, func(ut *model.UserTask) error {
		if ut.Completed {
			return util.ErrTaskAlreadyCompleted
		}
		ut.Submissions = append(ut.Submissions, model.Submission{Code: code, SubmittedAt: now})
		ut.BeingGraded = true
		ut.SavedCode = code
		ut.LastSaveAt = &now
		index = len(ut.Submissions) - 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, ut)
	monitoring.SubmissionsTotal.WithLabelValues(string(task.Type), "accepted").Inc()
	span.SetAttributes(attribute.Int("submission.index", index))

	logger.Log.Info("submission queued for grading",
		zap.Uint("learner_id", learnerID),
		zap.String("task_id", taskID),
		zap.Int("submission_index", index),
		zap.String("state", string(ut.State())))

	s.notify(ctx, queue.GradingEvent{
		Type:            queue.EventSubmitted,
		LearnerID:       learnerID,
		TaskID:          taskID,
		SubmissionIndex: index,
		OccurredAt:      now,
	})
	return &SubmitResult{Accepted: true, SubmissionIndex: index}, nil
}

// Finish 用完时间预算后交卷：不做形状检查，直接完成并等待评分
func (s *GradingService) Finish(ctx context.Context, learnerID uint, taskID, code string) (*FinishResult, error) {
	ctx, span := startSpan(ctx, "GradingService.Finish", learnerID, taskID)
	defer span.End()

	task, err := lookupTask(s.Curriculum, taskID)
	if err != nil {
		return nil, err
	}
	if err := requireGradable(task); err != nil {
		return nil, err
	}

	now := s.Now.now()
	index := -1
	ut, err := s.Repo.Mutate(ctx, learnerID, taskID, func(ut *model.UserTask) error {
		if ut.Completed {
			return util.ErrTaskAlreadyCompleted
		}
		active, err := ActiveElapsed(now, ut.StartedAt, ut.Submissions)
		if err != nil {
			return err
		}
		if limit := time.Duration(task.TimeLimit) * time.Second; active < limit {
			return fmt.Errorf("%w: %s of %s used", util.ErrTimeLimitNotReached, active.Truncate(time.Second), limit)
		}

		ut.Submissions = append(ut.Submissions, model.Submission{Code: code, SubmittedAt: now})
		ut.Completed = true
		ut.FinishedAt = &now
		ut.BeingGraded = true
		ut.SavedCode = code
		ut.LastSaveAt = &now
		index = len(ut.Submissions) - 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, ut)
	monitoring.SubmissionsTotal.WithLabelValues(string(task.Type), "finished").Inc()

	logger.Log.Info("task finished on time limit",
		zap.Uint("learner_id", learnerID),
		zap.String("task_id", taskID),
		zap.Int("submission_index", index),
		zap.String("state", string(model.StateCompleted)))

	s.notify(ctx, queue.GradingEvent{
		Type:            queue.EventSubmitted,
		LearnerID:       learnerID,
		TaskID:          taskID,
		SubmissionIndex: index,
		OccurredAt:      now,
	})
	return &FinishResult{Completed: true, SubmissionIndex: index}, nil
}

// Resolve 管理员裁定。通过则完成任务；不通过时学习者可以再次提交。
// 已通过的记录不会被后续裁定降级，已评分的提交不能重复评分。
func (s *GradingService) Resolve(ctx context.Context, adminID uint, req ResolveRequest) error {
	ctx, span := startSpan(ctx, "GradingService.Resolve", req.LearnerID, req.TaskID)
	defer span.End()

	task, err := lookupTask(s.Curriculum, req.TaskID)
	if err != nil {
		return err
	}
	if err := requireGradable(task); err != nil {
		return err
	}

	now := s.Now.now()
	var waited time.Duration
	ut, err := s.Repo.Mutate(ctx, req.LearnerID, req.TaskID, func(ut *model.UserTask) error {
		if req.SubmissionIndex < 0 || req.SubmissionIndex >= len(ut.Submissions) {
			return fmt.Errorf("%w: index %d, %d submissions", util.ErrSubmissionIndexOutOfRange, req.SubmissionIndex, len(ut.Submissions))
		}
		sub := &ut.Submissions[req.SubmissionIndex]
		if sub.Checked() {
			return util.ErrSubmissionAlreadyGraded
		}
		if now.Before(sub.SubmittedAt) {
			return fmt.Errorf("%w: grading before submission %d", util.ErrInvalidTimingRecord, req.SubmissionIndex)
		}

		checkedAt := now
		sub.CheckedAt = &checkedAt
		sub.Feedback = req.Feedback
		sub.GradedBy = adminID
		waited = now.Sub(sub.SubmittedAt)

		if !(ut.Completed && ut.Passed) {
			ut.Passed = req.Passed
		}
		if req.Passed {
			ut.Completed = true
			if ut.FinishedAt == nil {
				ut.FinishedAt = &checkedAt
			}
		}
		ut.BeingGraded = ut.HasPending()
		return nil
	})
	if err != nil {
		return err
	}
	s.Cache.Set(ctx, ut)
	monitoring.GradingDecisionsTotal.WithLabelValues(strconv.FormatBool(req.Passed)).Inc()
	monitoring.GradingLatency.Observe(waited.Seconds())

	logger.Log.Info("submission graded",
		zap.Uint("admin_id", adminID),
		zap.Uint("learner_id", req.LearnerID),
		zap.String("task_id", req.TaskID),
		zap.Int("submission_index", req.SubmissionIndex),
		zap.Bool("passed", req.Passed),
		zap.String("state", string(ut.State())))

	passed := req.Passed
	s.notify(ctx, queue.GradingEvent{
		Type:            queue.EventResolved,
		LearnerID:       req.LearnerID,
		TaskID:          req.TaskID,
		SubmissionIndex: req.SubmissionIndex,
		Passed:          &passed,
		GradedBy:        adminID,
		OccurredAt:      now,
	})
	return nil
}

// ListPending 待评记录，按最近一次提交时间倒序（最新的在前）
func (s *GradingService) ListPending(ctx context.Context) ([]PendingEntry, error) {
	ctx, span := startSpan(ctx, "GradingService.ListPending", 0, "")
	defer span.End()

	records, err := s.Repo.ListBeingGraded(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]PendingEntry, 0, len(records))
	for i := range records {
		ut := &records[i]
		last, ok := ut.LastSubmission()
		if !ok {
			continue
		}
		index := len(ut.Submissions) - 1
		entry := PendingEntry{
			ID:              fmt.Sprintf("%s-%d", ut.Key(), index),
			Index:           index,
			UserTaskID:      ut.Key(),
			LearnerID:       ut.LearnerID,
			TaskID:          ut.TaskID,
			StartedAt:       ut.StartedAt,
			SubmissionCount: len(ut.Submissions),
			Code:            last.Code,
			SubmittedAt:     last.SubmittedAt,
		}
		if task, ok := s.Curriculum.Find(ut.TaskID); ok {
			entry.TaskType = task.Type
			entry.TaskDescription = task.Description
			if task.Type.RequiresGrading() {
				entry.Solution = task.Solution
			}
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SubmittedAt.After(entries[j].SubmittedAt)
	})
	monitoring.PendingSubmissions.Set(float64(len(entries)))
	return entries, nil
}
