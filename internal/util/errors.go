package util

import (
	"errors"
	"net/http"
)

var (
	ErrPermissionDenied = errors.New("permission denied")

	// 输入错误
	ErrInvalidTaskID             = errors.New("invalid task id")
	ErrSubmissionRejected        = errors.New("submission rejected")
	ErrSubmissionIndexOutOfRange = errors.New("submission index out of range")
	ErrSubmissionAlreadyGraded   = errors.New("submission already graded")
	ErrVariantMismatch           = errors.New("operation not supported for this task type")
	ErrTaskAlreadyCompleted      = errors.New("task already completed")
	ErrTimeLimitNotReached       = errors.New("time limit not reached")

	// 不存在
	ErrUserTaskNotFound    = errors.New("user task not found")
	ErrCurriculumExhausted = errors.New("curriculum exhausted")

	// 数据完整性
	ErrInvalidTimingRecord = errors.New("invalid timing record")
	ErrDuplicateTaskID     = errors.New("duplicate task id")
	ErrInvalidCurriculum   = errors.New("invalid curriculum")

	// 可重试
	ErrVersionConflict    = errors.New("concurrent update conflict")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ErrorKind 描述一个错误对客户端的呈现方式
type ErrorKind struct {
	Status    int
	Kind      string
	Retryable bool
}

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrPermissionDenied, ErrorKind{http.StatusForbidden, "unauthorized", false}},
	{ErrInvalidTaskID, ErrorKind{http.StatusBadRequest, "invalid_task_id", false}},
	{ErrSubmissionRejected, ErrorKind{http.StatusUnprocessableEntity, "submission_rejected", false}},
	{ErrSubmissionIndexOutOfRange, ErrorKind{http.StatusBadRequest, "submission_index_out_of_range", false}},
	{ErrSubmissionAlreadyGraded, ErrorKind{http.StatusConflict, "submission_already_graded", false}},
	{ErrVariantMismatch, ErrorKind{http.StatusBadRequest, "variant_mismatch", false}},
	{ErrTaskAlreadyCompleted, ErrorKind{http.StatusConflict, "task_already_completed", false}},
	{ErrTimeLimitNotReached, ErrorKind{http.StatusConflict, "time_limit_not_reached", false}},
	{ErrUserTaskNotFound, ErrorKind{http.StatusNotFound, "user_task_not_found", false}},
	{ErrCurriculumExhausted, ErrorKind{http.StatusNotFound, "curriculum_exhausted", false}},
	{ErrInvalidTimingRecord, ErrorKind{http.StatusInternalServerError, "invalid_timing_record", false}},
	{ErrDuplicateTaskID, ErrorKind{http.StatusInternalServerError, "invalid_curriculum", false}},
	{ErrInvalidCurriculum, ErrorKind{http.StatusInternalServerError, "invalid_curriculum", false}},
	{ErrVersionConflict, ErrorKind{http.StatusConflict, "version_conflict", true}},
	{ErrStorageUnavailable, ErrorKind{http.StatusServiceUnavailable, "storage_unavailable", true}},
}

// Classify 将错误映射为 HTTP 状态码、错误类型以及是否可重试
func Classify(err error) ErrorKind {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ErrorKind{http.StatusInternalServerError, "internal_error", false}
}
