package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type UserTaskState string

const (
	StateNotStarted    UserTaskState = "not_started"
	StateInProgress    UserTaskState = "in_progress"
	StateAwaitingGrade UserTaskState = "awaiting_grade"
	StateCompleted     UserTaskState = "completed"
)

// Submission 提交记录，只追加；评分时按下标原地补充 CheckedAt/Feedback
type Submission struct {
	Code        string                          `json:"code"`
	SubmittedAt time.Time                       `json:"submittedAt"`
	CheckedAt   *time.Time                      `json:"checkedAt,omitempty"`
	Feedback    string                          `json:"feedback,omitempty"`
	GradedBy    uint                            `json:"gradedBy,omitempty"`
}

func (s Submission) Checked() bool {
	return s.CheckedAt != nil
}

// UserTask 学习者在某道题上的进度记录，(learner_id, task_id) 唯一
// swagger:model UserTask
type UserTask struct {
	BaseModel
	LearnerID   uint                            `gorm:"not null;uniqueIndex:idx_learner_task" json:"learnerId"`
	TaskID      string                          `gorm:"size:64;not null;uniqueIndex:idx_learner_task" json:"taskId"`
	Sequence    int                             `gorm:"not null" json:"sequence"`
	StartedAt   time.Time                       `gorm:"not null" json:"startedAt"`
	FinishedAt  *time.Time                      `json:"finishedAt,omitempty"`
	Submissions datatypes.JSONSlice[Submission] `json:"submissions"`
	BeingGraded bool                            `gorm:"default:false;index" json:"beingGraded"`
	Passed      bool                            `gorm:"default:false" json:"passed"`
	Completed   bool                            `gorm:"default:false;index" json:"completed"`
	SavedCode   string                          `gorm:"type:text" json:"savedCode"`
	LastSaveAt  *time.Time                      `json:"lastSaveAt,omitempty"`
	Data        datatypes.JSON                  `json:"data,omitempty"`
	Log         datatypes.JSON                  `json:"-"`
	Version     uint                            `gorm:"not null;default:1" json:"-"`
}

func (UserTask) TableName() string {
	return "user_tasks"
}

// Key 对外暴露的记录标识
func (u *UserTask) Key() string {
	return UserTaskKey(u.LearnerID, u.TaskID)
}

func UserTaskKey(learnerID uint, taskID string) string {
	return fmt.Sprintf("%d_%s", learnerID, taskID)
}

func (u *UserTask) LastSubmission() (Submission, bool) {
	if len(u.Submissions) == 0 {
		return Submission{}, false
	}
	return u.Submissions[len(u.Submissions)-1], true
}

// LastFeedback 最近一次提交已评分时返回其反馈，否则为空串
func (u *UserTask) LastFeedback() string {
	last, ok := u.LastSubmission()
	if !ok || !last.Checked() {
		return ""
	}
	return last.Feedback
}

// HasPending 最后一次提交尚未评分
func (u *UserTask) HasPending() bool {
	last, ok := u.LastSubmission()
	return ok && !last.Checked()
}

func (u *UserTask) State() UserTaskState {
	switch {
	case u == nil:
		return StateNotStarted
	case u.Completed:
		return StateCompleted
	case u.BeingGraded:
		return StateAwaitingGrade
	default:
		return StateInProgress
	}
}
