package curriculum

import (
	"bytes"
	"coding_steps_backend/internal/model"
	"coding_steps_backend/internal/util"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_curriculum.yaml
var defaultCurriculum []byte

// Curriculum 有序且不可变的题目序列，构造时校验一次
type Curriculum struct {
	tasks []model.Task
	index map[string]int
}

type curriculumFile struct {
	Tasks []model.Task `yaml:"tasks"`
}

// New 校验并复制 tasks；id 重复返回 ErrDuplicateTaskID
func New(tasks []model.Task) (*Curriculum, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: no tasks", util.ErrInvalidCurriculum)
	}

	c := &Curriculum{
		tasks: make([]model.Task, 0, len(tasks)),
		index: make(map[string]int, len(tasks)),
	}
	for i := range tasks {
		t := tasks[i].Clone()
		if err := validateTask(t); err != nil {
			return nil, err
		}
		if _, dup := c.index[t.ID]; dup {
			return nil, fmt.Errorf("%w: %q", util.ErrDuplicateTaskID, t.ID)
		}
		c.index[t.ID] = len(c.tasks)
		c.tasks = append(c.tasks, *t)
	}
	return c, nil
}

func validateTask(t *model.Task) error {
	if t.ID == "" {
		return fmt.Errorf("%w: task without id", util.ErrInvalidCurriculum)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: task %q has unknown type %q", util.ErrInvalidCurriculum, t.ID, t.Type)
	}

	switch t.Type {
	case model.Authoring, model.Modifying:
		if t.TimeLimit <= 0 {
			return fmt.Errorf("%w: task %q needs a positive timeLimit", util.ErrInvalidCurriculum, t.ID)
		}
		if t.Solution == "" {
			return fmt.Errorf("%w: task %q needs a solution", util.ErrInvalidCurriculum, t.ID)
		}
		if t.Type == model.Modifying && t.StarterCode == "" {
			return fmt.Errorf("%w: task %q needs starterCode", util.ErrInvalidCurriculum, t.ID)
		}
	case model.MultipleChoice:
		if len(t.Choices) < 2 {
			return fmt.Errorf("%w: task %q needs at least two choices", util.ErrInvalidCurriculum, t.ID)
		}
	case model.ShortAnswer, model.WatchVideo:
	}
	return nil
}

// Parse 解析 YAML 格式的课程文件
func Parse(data []byte) (*Curriculum, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f curriculumFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidCurriculum, err)
	}
	return New(f.Tasks)
}

// Load path 为空时使用内置课程
func Load(path string) (*Curriculum, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum %s: %w", path, err)
	}
	return Parse(data)
}

func Default() (*Curriculum, error) {
	return Parse(defaultCurriculum)
}

func (c *Curriculum) Len() int {
	return len(c.tasks)
}

// Tasks 返回副本
func (c *Curriculum) Tasks() []model.Task {
	out := make([]model.Task, len(c.tasks))
	for i := range c.tasks {
		out[i] = *c.tasks[i].Clone()
	}
	return out
}

func (c *Curriculum) Find(id string) (*model.Task, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.tasks[i].Clone(), true
}

// Sequence 题目在课程中的位置
func (c *Curriculum) Sequence(id string) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}

func (c *Curriculum) First() *model.Task {
	return c.tasks[0].Clone()
}

// Next 根据已完成记录（按 sequence 升序）计算下一题。
// 上一题是已通过的 Authoring 且下一题是 Modifying 时，起始代码替换为上一题最后一次提交的代码；
// 未通过则保留默认起始代码。
func (c *Curriculum) Next(history []model.UserTask) (*model.Task, error) {
	if len(history) == 0 {
		return c.First(), nil
	}

	prev := history[len(history)-1]
	i, ok := c.index[prev.TaskID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", util.ErrInvalidTaskID, prev.TaskID)
	}
	if i+1 >= len(c.tasks) {
		return nil, util.ErrCurriculumExhausted
	}

	next := c.tasks[i+1].Clone()
	if carriesOver(c.tasks[i].Type, next.Type) && prev.Passed {
		if last, ok := prev.LastSubmission(); ok {
			next.StarterCode = last.Code
		}
	}
	return next, nil
}

func carriesOver(prev, next model.TaskVariant) bool {
	switch next {
	case model.Modifying:
		return prev == model.Authoring
	case model.Authoring, model.ShortAnswer, model.MultipleChoice, model.WatchVideo:
		return false
	}
	return false
}
