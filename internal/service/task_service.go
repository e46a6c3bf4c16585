package service

import (
	"coding_steps_backend/internal/curriculum"
	"coding_steps_backend/internal/model"
	"coding_steps_backend/internal/repository"
	"coding_steps_backend/internal/util"
	"coding_steps_backend/pkg/logger"
	"coding_steps_backend/pkg/tracing"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// TaskService 学习者侧的任务进度：下一题、开始、轮询、草稿、非评分题提交、遥测日志
type TaskService struct {
	Repo        *repository.UserTaskRepository
	Curriculum  *curriculum.Curriculum
	Cache       StatusCache
	Storage     StorageProvider
	ArchiveLogs bool
	Now         Clock
}

func NewTaskService(repo *repository.UserTaskRepository, c *curriculum.Curriculum, cache StatusCache, storage StorageProvider, archiveLogs bool) *TaskService {
	if cache == nil {
		cache = NopStatusCache{}
	}
	return &TaskService{
		Repo:        repo,
		Curriculum:  c,
		Cache:       cache,
		Storage:     storage,
		ArchiveLogs: archiveLogs,
	}
}

// StatusView 开始/轮询接口返回的记录快照，时长单位为毫秒
type StatusView struct {
	UserTaskID       string              `json:"userTaskId"`
	TaskID           string              `json:"taskId"`
	State            model.UserTaskState `json:"state"`
	StartedAt        time.Time           `json:"startedAt"`
	FinishedAt       *time.Time          `json:"finishedAt,omitempty"`
	BeingGraded      bool                `json:"beingGraded"`
	Passed           bool                `json:"passed"`
	Completed        bool                `json:"completed"`
	CheckingTime     int64               `json:"checkingTime"`
	Feedback         string              `json:"feedback"`
	SubmissionCount  int                 `json:"submissionCount"`
	TimeLimit        int                 `json:"timeLimit,omitempty"`
	ActiveElapsed    int64               `json:"activeElapsed"`
	TimeLimitReached bool                `json:"timeLimitReached"`
}

// StartResult started 恒为 true；canContinue 表示记录此前已存在
type StartResult struct {
	Started     bool `json:"started"`
	CanContinue bool `json:"canContinue"`
	StatusView
}

type DraftView struct {
	SavedCode  string     `json:"savedCode"`
	LastSaveAt *time.Time `json:"lastSaveAt,omitempty"`
}

type LogResult struct {
	ArchiveURL string `json:"archiveUrl,omitempty"`
}

// SimpleSubmission 非评分题的提交；时间缺省为服务器当前时间
type SimpleSubmission struct {
	Data       json.RawMessage
	StartedAt  *time.Time
	FinishedAt *time.Time
}

func lookupTask(c *curriculum.Curriculum, taskID string) (*model.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("%w: empty task id", util.ErrInvalidTaskID)
	}
	task, ok := c.Find(taskID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", util.ErrInvalidTaskID, taskID)
	}
	return task, nil
}

func requireGradable(task *model.Task) error {
	if !task.Type.RequiresGrading() {
		return fmt.Errorf("%w: task %s is %s", util.ErrVariantMismatch, task.ID, task.Type)
	}
	return nil
}

// buildStatus 已完成的记录按 finishedAt 计算用时
func buildStatus(now time.Time, task *model.Task, ut *model.UserTask) (*StatusView, error) {
	checking, err := CheckingTime(now, ut.Submissions)
	if err != nil {
		return nil, err
	}
	asOf := now
	if ut.Completed && ut.FinishedAt != nil && ut.FinishedAt.Before(now) {
		asOf = *ut.FinishedAt
	}
	if asOf.Before(ut.StartedAt) {
		asOf = ut.StartedAt
	}
	active, err := ActiveElapsed(asOf, ut.StartedAt, ut.Submissions)
	if err != nil {
		return nil, err
	}

	v := &StatusView{
		UserTaskID:      ut.Key(),
		TaskID:          ut.TaskID,
		State:           ut.State(),
		StartedAt:       ut.StartedAt,
		FinishedAt:      ut.FinishedAt,
		BeingGraded:     ut.BeingGraded,
		Passed:          ut.Passed,
		Completed:       ut.Completed,
		CheckingTime:    checking.Milliseconds(),
		Feedback:        ut.LastFeedback(),
		SubmissionCount: len(ut.Submissions),
		ActiveElapsed:   active.Milliseconds(),
	}
	if task != nil && task.TimeLimit > 0 {
		v.TimeLimit = task.TimeLimit
		v.TimeLimitReached = active >= time.Duration(task.TimeLimit)*time.Second
	}
	return v, nil
}

func startSpan(ctx context.Context, name string, learnerID uint, taskID string) (context.Context, trace.Span) {
	return tracing.Tracer.Start(ctx, name, trace.WithAttributes(
		attribute.Int64("learner.id", int64(learnerID)),
		attribute.String("task.id", taskID),
	))
}

// NextTask 根据已完成记录给出下一题
func (s *TaskService) NextTask(ctx context.Context, learnerID uint) (*model.Task, error) {
	ctx, span := startSpan(ctx, "TaskService.NextTask", learnerID, "")
	defer span.End()

	history, err := s.Repo.ListCompletedByLearner(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return s.Curriculum.Next(history)
}

// Start 首次调用创建记录，之后的调用只返回当前快照
func (s *TaskService) Start(ctx context.Context, learnerID uint, taskID string) (*StartResult, error) {
	ctx, span := startSpan(ctx, "TaskService.Start", learnerID, taskID)
	defer span.End()

	task, err := lookupTask(s.Curriculum, taskID)
	if err != nil {
		return nil, err
	}
	seq, _ := s.Curriculum.Sequence(taskID)

	now := s.Now.now()
	ut, created, err := s.Repo.FindOrCreate(ctx, &model.UserTask{
		LearnerID: learnerID,
		TaskID:    taskID,
		Sequence:  seq,
		StartedAt: now,
		Version:   1,
	})
	if err != nil {
		return nil, err
	}
	if created {
		logger.Log.Info("user task started",
			zap.Uint("learner_id", learnerID),
			zap.String("task_id", taskID),
			zap.String("state", string(ut.State())))
	}

	view, err := buildStatus(now, task, ut)
	if err != nil {
		return nil, err
	}
	return &StartResult{Started: true, CanContinue: !created, StatusView: *view}, nil
}

// PollStatus 只读；启用缓存时优先读取快照，时长总是按当前时间重新计算
func (s *TaskService) PollStatus(ctx context.Context, learnerID uint, taskID string) (*StatusView, error) {
	task, err := lookupTask(s.Curriculum, taskID)
	if err != nil {
		return nil, err
	}

	ut, ok := s.Cache.Get(ctx, learnerID, taskID)
	if !ok {
		ut, err = s.Repo.Find(ctx, learnerID, taskID)
		if err != nil {
			return nil, err
		}
		// 回填按版本号写入，读到旧记录时不会覆盖并发写入的新快照
		s.Cache.Set(ctx, ut)
	}
	return buildStatus(s.Now.now(), task, ut)
}

// SubmitSimple 非评分题直接完成；已完成的记录重复提交不做修改
func (s *TaskService) SubmitSimple(ctx context.Context, learnerID uint, taskID string, req SimpleSubmission) (*StatusView, error) {
	ctx, span := startSpan(ctx, "TaskService.SubmitSimple", learnerID, taskID)
	defer span.End()

	task, err := lookupTask(s.Curriculum, taskID)
	if err != nil {
		return nil, err
	}
	if task.Type.RequiresGrading() {
		return nil, fmt.Errorf("%w: task %s must be submitted for grading", util.ErrVariantMismatch, task.ID)
	}

	now := s.Now.now()
	startedAt, finishedAt := now, now
	if req.StartedAt != nil {
		startedAt = *req.StartedAt
	}
	if req.FinishedAt != nil {
		finishedAt = *req.FinishedAt
	}
	if finishedAt.Before(startedAt) {
		return nil, fmt.Errorf("%w: finishedAt before startedAt", util.ErrInvalidTimingRecord)
	}
	var data datatypes.JSON
	if len(req.Data) > 0 {
		data = datatypes.JSON(req.Data)
	}

	seq, _ := s.Curriculum.Sequence(taskID)
	ut, created, err := s.Repo.FindOrCreate(ctx, &model.UserTask{
		LearnerID:  learnerID,
		TaskID:     taskID,
		Sequence:   seq,
		StartedAt:  startedAt,
		FinishedAt: &finishedAt,
		Completed:  true,
		Data:       data,
		Version:    1,
	})
	if err != nil {
		return nil, err
	}

	if !created {
		ut, err = s.Repo.Mutate(ctx, learnerID, taskID, func(ut *model.UserTask) error {
			if ut.Completed {
				return repository.ErrNoChange
			}
			ut.Completed = true
			ut.FinishedAt = &finishedAt
			ut.Data = data
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.Cache.Set(ctx, ut)
	}

	logger.Log.Info("user task completed",
		zap.Uint("learner_id", learnerID),
		zap.String("task_id", taskID),
		zap.String("type", string(task.Type)))
	return buildStatus(now, task, ut)
}

// SaveDraft 自动保存，与提交记录无关
func (s *TaskService) SaveDraft(ctx context.Context, learnerID uint, taskID, code string) error {
	ctx, span := startSpan(ctx, "TaskService.SaveDraft", learnerID, taskID)
	defer span.End()

	task, err := lookupTask(s.Curriculum, taskID)
	if err != nil {
		return err
	}
	if err := requireGradable(task); err != nil {
		return err
	}

	now := s.Now.now()
	ut, err := s.Repo.Mutate(ctx, learnerID, taskID, func(ut *model.UserTask) error {
		ut.SavedCode = code
		ut.LastSaveAt = &now
		return nil
	})
	if err != nil {
		return err
	}
	s.Cache.Set(ctx, ut)
	return nil
}

func (s *TaskService) GetDraft(ctx context.Context, learnerID uint, taskID string) (*DraftView, error) {
	task, err := lookupTask(s.Curriculum, taskID)
	if err != nil {
		return nil, err
	}
	if err := requireGradable(task); err != nil {
		return nil, err
	}

	ut, err := s.Repo.Find(ctx, learnerID, taskID)
	if err != nil {
		return nil, err
	}
	return &DraftView{SavedCode: ut.SavedCode, LastSaveAt: ut.LastSaveAt}, nil
}

// SaveLog 覆盖记录上的遥测日志；开启归档时另存一份到对象存储，归档失败只记录告警
func (s *TaskService) SaveLog(ctx context.Context, learnerID uint, taskID string, payload json.RawMessage) (*LogResult, error) {
	ctx, span := startSpan(ctx, "TaskService.SaveLog", learnerID, taskID)
	defer span.End()

	if _, err := lookupTask(s.Curriculum, taskID); err != nil {
		return nil, err
	}

	_, err := s.Repo.Mutate(ctx, learnerID, taskID, func(ut *model.UserTask) error {
		ut.Log = datatypes.JSON(payload)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &LogResult{}
	if s.ArchiveLogs && s.Storage != nil {
		url, err := archiveTelemetry(ctx, s.Storage, learnerID, taskID, payload)
		if err != nil {
			logger.Log.Warn("telemetry archive failed",
				zap.Uint("learner_id", learnerID),
				zap.String("task_id", taskID),
				zap.Error(err))
		} else {
			res.ArchiveURL = url
		}
	}
	return res, nil
}
