package model

import "unicode/utf8"

// TaskVariant 任务类型，决定完成规则
type TaskVariant string

const (
	Authoring      TaskVariant = "authoring"
	Modifying      TaskVariant = "modifying"
	ShortAnswer    TaskVariant = "shortAnswer"
	MultipleChoice TaskVariant = "multipleChoice"
	WatchVideo     TaskVariant = "watchVideo"
)

// DefaultMinCodeLength 提交代码需超过的最小字符数
const DefaultMinCodeLength = 10

func (v TaskVariant) Valid() bool {
	switch v {
	case Authoring, Modifying, ShortAnswer, MultipleChoice, WatchVideo:
		return true
	}
	return false
}

// RequiresGrading 需要管理员人工评分的类型
func (v TaskVariant) RequiresGrading() bool {
	switch v {
	case Authoring, Modifying:
		return true
	case ShortAnswer, MultipleChoice, WatchVideo:
		return false
	}
	return false
}

// Task 课程中的一道题，加载后不可变
// swagger:model Task
type Task struct {
	ID          string      `yaml:"id" json:"id"`
	Type        TaskVariant `yaml:"type" json:"type"`
	Description string      `yaml:"description" json:"description"`
	TimeLimit   int         `yaml:"timeLimit,omitempty" json:"timeLimit,omitempty"` // 秒
	Solution    string      `yaml:"solution,omitempty" json:"-"`
	StarterCode string      `yaml:"starterCode,omitempty" json:"starterCode,omitempty"`
	Output      [][]string  `yaml:"output,omitempty" json:"output,omitempty"`
	Choices     []string    `yaml:"choices,omitempty" json:"choices,omitempty"`
}

// SubmissionCheck 提交前的形状检查结果，不代表正确性
type SubmissionCheck struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// ValidateSubmission 只对需要评分的类型有意义；minLength<=0 时使用默认值
func (t *Task) ValidateSubmission(code string, minLength int) SubmissionCheck {
	if minLength <= 0 {
		minLength = DefaultMinCodeLength
	}
	if utf8.RuneCountInString(code) > minLength {
		return SubmissionCheck{Accepted: true}
	}
	return SubmissionCheck{Reason: "code is too short"}
}

// Clone 返回深拷贝，调用方可以修改而不影响课程
func (t *Task) Clone() *Task {
	c := *t
	if t.Output != nil {
		c.Output = make([][]string, len(t.Output))
		for i, row := range t.Output {
			c.Output[i] = append([]string(nil), row...)
		}
	}
	if t.Choices != nil {
		c.Choices = append([]string(nil), t.Choices...)
	}
	return &c
}
