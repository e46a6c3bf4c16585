package repository

import (
	"coding_steps_backend/internal/model"
	"coding_steps_backend/internal/util"
	"coding_steps_backend/pkg/logger"
	"coding_steps_backend/pkg/monitoring"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoChange 由 Mutate 的回调返回，表示无需写入
var ErrNoChange = errors.New("no change")

// RetryConfig 持久化层的重试策略，版本冲突与瞬时故障共用
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
	}
}

type UserTaskRepository struct {
	DB          *gorm.DB
	retrier     retry.Retry[*model.UserTask]
	listRetrier retry.Retry[[]model.UserTask]
}

func NewUserTaskRepository(db *gorm.DB, cfg RetryConfig) *UserTaskRepository {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}

	return &UserTaskRepository{
		DB:          db,
		retrier:     retry.New[*model.UserTask](retryConfig(cfg)),
		listRetrier: retry.New[[]model.UserTask](retryConfig(cfg)),
	}
}

func retryConfig(cfg RetryConfig) retry.Config {
	return retry.Config{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      cfg.MaxDelay,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   isRetryable,
	}
}

func isRetryable(err error) bool {
	return errors.Is(err, util.ErrVersionConflict) || isTransient(err)
}

// isTransient 连接中断、超时、死锁等可以重试的数据库错误
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// 1205 lock wait timeout, 1213 deadlock
		return myErr.Number == 1205 || myErr.Number == 1213
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure, deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// finish 把重试结果转换成对外的错误：冲突保持原样，瞬时故障在重试耗尽后归为 ErrStorageUnavailable
func finish[T any](ctx context.Context, op string, v T, err, lastErr error) (T, error) {
	if err == nil {
		return v, nil
	}
	if lastErr == nil {
		lastErr = err
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(lastErr, ctxErr) {
		return v, fmt.Errorf("%s: %w", op, ctxErr)
	}
	if isTransient(lastErr) {
		logger.Log.Error("storage retries exhausted", zap.String("op", op), zap.Error(lastErr))
		return v, fmt.Errorf("%s: %w: %v", op, util.ErrStorageUnavailable, lastErr)
	}
	return v, lastErr
}

func (r *UserTaskRepository) do(ctx context.Context, op string, fn func(ctx context.Context) (*model.UserTask, error)) (*model.UserTask, error) {
	var lastErr error
	ut, err := r.retrier.Do(ctx, func(ctx context.Context) (*model.UserTask, error) {
		res, err := fn(ctx)
		lastErr = err
		if err != nil && isRetryable(err) {
			logger.Log.Warn("retrying user task operation", zap.String("op", op), zap.Error(err))
		}
		return res, err
	})
	return finish(ctx, op, ut, err, lastErr)
}

func (r *UserTaskRepository) doList(ctx context.Context, op string, fn func(ctx context.Context) ([]model.UserTask, error)) ([]model.UserTask, error) {
	var lastErr error
	list, err := r.listRetrier.Do(ctx, func(ctx context.Context) ([]model.UserTask, error) {
		res, err := fn(ctx)
		lastErr = err
		return res, err
	})
	return finish(ctx, op, list, err, lastErr)
}

func (r *UserTaskRepository) find(ctx context.Context, learnerID uint, taskID string) (*model.UserTask, error) {
	var ut model.UserTask
	err := r.DB.WithContext(ctx).
		Where("learner_id = ? AND task_id = ?", learnerID, taskID).
		First(&ut).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ut, nil
}

// Find 读取单条记录的快照
func (r *UserTaskRepository) Find(ctx context.Context, learnerID uint, taskID string) (*model.UserTask, error) {
	return r.do(ctx, "find", func(ctx context.Context) (*model.UserTask, error) {
		return r.find(ctx, learnerID, taskID)
	})
}

// FindOrCreate 依赖唯一索引保证同一 (learner, task) 只会创建一次，created 表示本次调用是否插入
func (r *UserTaskRepository) FindOrCreate(ctx context.Context, ut *model.UserTask) (*model.UserTask, bool, error) {
	created := false
	res, err := r.do(ctx, "find_or_create", func(ctx context.Context) (*model.UserTask, error) {
		existing, err := r.find(ctx, ut.LearnerID, ut.TaskID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, util.ErrUserTaskNotFound) {
			return nil, err
		}

		row := *ut
		result := r.DB.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row)
		if result.Error != nil {
			return nil, result.Error
		}
		created = result.RowsAffected == 1
		return r.find(ctx, ut.LearnerID, ut.TaskID)
	})
	if err != nil {
		return nil, false, err
	}
	return res, created, nil
}

// Mutate 读取记录、执行 fn、按版本号条件写回；版本不匹配时重新读取并重试。
// fn 返回错误时不写入，ErrNoChange 视为成功。
func (r *UserTaskRepository) Mutate(ctx context.Context, learnerID uint, taskID string, fn func(ut *model.UserTask) error) (*model.UserTask, error) {
	return r.do(ctx, "mutate", func(ctx context.Context) (*model.UserTask, error) {
		ut, err := r.find(ctx, learnerID, taskID)
		if err != nil {
			return nil, err
		}
		if err := fn(ut); err != nil {
			if errors.Is(err, ErrNoChange) {
				return ut, nil
			}
			return nil, err
		}

		prev := ut.Version
		ut.Version = prev + 1
		ut.UpdatedAt = time.Now()
		result := r.DB.WithContext(ctx).
			Model(&model.UserTask{}).
			Where("id = ? AND version = ?", ut.ID, prev).
			Updates(map[string]interface{}{
				"finished_at":  ut.FinishedAt,
				"submissions":  ut.Submissions,
				"being_graded": ut.BeingGraded,
				"passed":       ut.Passed,
				"completed":    ut.Completed,
				"saved_code":   ut.SavedCode,
				"last_save_at": ut.LastSaveAt,
				"data":         ut.Data,
				"log":          ut.Log,
				"version":      ut.Version,
				"updated_at":   ut.UpdatedAt,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			monitoring.VersionConflictsTotal.Inc()
			return nil, util.ErrVersionConflict
		}
		return ut, nil
	})
}

// ListCompletedByLearner 按课程顺序返回已完成的记录
func (r *UserTaskRepository) ListCompletedByLearner(ctx context.Context, learnerID uint) ([]model.UserTask, error) {
	return r.doList(ctx, "list_completed", func(ctx context.Context) ([]model.UserTask, error) {
		var list []model.UserTask
		err := r.DB.WithContext(ctx).
			Where("learner_id = ? AND completed = ?", learnerID, true).
			Order("sequence ASC").
			Find(&list).Error
		return list, err
	})
}

func (r *UserTaskRepository) ListBeingGraded(ctx context.Context) ([]model.UserTask, error) {
	return r.doList(ctx, "list_being_graded", func(ctx context.Context) ([]model.UserTask, error) {
		var list []model.UserTask
		err := r.DB.WithContext(ctx).
			Where("being_graded = ?", true).
			Find(&list).Error
		return list, err
	})
}
