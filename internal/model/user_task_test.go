package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserTaskState(t *testing.T) {
	var missing *UserTask
	assert.Equal(t, StateNotStarted, missing.State())

	ut := &UserTask{}
	assert.Equal(t, StateInProgress, ut.State())

	ut.BeingGraded = true
	assert.Equal(t, StateAwaitingGrade, ut.State())

	ut.Completed = true
	assert.Equal(t, StateCompleted, ut.State())
}

func TestLastFeedback(t *testing.T) {
	now := time.Now()
	ut := &UserTask{LearnerID: 7, TaskID: "1a"}
	assert.Equal(t, "7_1a", ut.Key())
	assert.Equal(t, "", ut.LastFeedback())
	assert.False(t, ut.HasPending())

	ut.Submissions = append(ut.Submissions, Submission{Code: "a", SubmittedAt: now, CheckedAt: &now, Feedback: "close"})
	assert.Equal(t, "close", ut.LastFeedback())

	ut.Submissions = append(ut.Submissions, Submission{Code: "b", SubmittedAt: now})
	assert.Equal(t, "", ut.LastFeedback())
	assert.True(t, ut.HasPending())
}
