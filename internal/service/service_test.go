package service

import (
	"coding_steps_backend/internal/config"
	"coding_steps_backend/internal/curriculum"
	"coding_steps_backend/internal/model"
	"coding_steps_backend/internal/repository"
	"coding_steps_backend/internal/testutil"
	"coding_steps_backend/pkg/queue"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: t0}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []queue.GradingEvent
}

func (n *recordingNotifier) Publish(_ context.Context, ev queue.GradingEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) Events() []queue.GradingEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]queue.GradingEvent(nil), n.events...)
}

// memoryCache 与 RedisStatusCache 相同的按版本写入语义，并记录写入次数
type memoryCache struct {
	mu     sync.Mutex
	items  map[string]model.UserTask
	writes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string]model.UserTask{}}
}

func (c *memoryCache) Get(_ context.Context, learnerID uint, taskID string) (*model.UserTask, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ut, ok := c.items[statusCacheKey(learnerID, taskID)]
	if !ok {
		return nil, false
	}
	return &ut, true
}

func (c *memoryCache) Set(_ context.Context, ut *model.UserTask) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := statusCacheKey(ut.LearnerID, ut.TaskID)
	if cur, ok := c.items[key]; ok && cur.Version > ut.Version {
		return
	}
	c.writes++
	c.items[key] = *ut
}

type fixture struct {
	tasks    *TaskService
	grading  *GradingService
	repo     *repository.UserTaskRepository
	clock    *fakeClock
	notifier *recordingNotifier
	cache    *memoryCache
	storage  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cur, err := curriculum.Default()
	require.NoError(t, err)

	repo := repository.NewUserTaskRepository(testutil.NewTestDB(t), repository.RetryConfig{
		MaxAttempts:  20,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	})

	f := &fixture{
		repo:     repo,
		clock:    newFakeClock(),
		notifier: &recordingNotifier{},
		cache:    newMemoryCache(),
		storage:  t.TempDir(),
	}
	storage := &LocalStorageProvider{Config: &config.StorageConfig{Type: "local", LocalPath: f.storage}}

	f.tasks = NewTaskService(repo, cur, f.cache, storage, true)
	f.tasks.Now = f.clock.Now
	f.grading = NewGradingService(repo, cur, f.cache, f.notifier, 0)
	f.grading.Now = f.clock.Now
	return f
}

func (f *fixture) record(t *testing.T, learnerID uint, taskID string) *model.UserTask {
	t.Helper()
	ut, err := f.repo.Find(context.Background(), learnerID, taskID)
	require.NoError(t, err)
	return ut
}
