package controller

import (
	"coding_steps_backend/internal/service"
	"coding_steps_backend/internal/util"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
)

// TaskController 学员侧的任务接口，学员ID一律取自 token
type TaskController struct {
	TaskService    *service.TaskService
	GradingService *service.GradingService
}

func NewTaskController(taskService *service.TaskService, gradingService *service.GradingService) *TaskController {
	return &TaskController{TaskService: taskService, GradingService: gradingService}
}

// TaskRequest 只携带任务ID的请求
// swagger:model TaskRequest
type TaskRequest struct {
	TaskID string `json:"taskId" binding:"required"`
}

// CodeRequest 携带代码的请求（提交评分、限时结束、保存草稿）
// swagger:model CodeRequest
type CodeRequest struct {
	TaskID string `json:"taskId" binding:"required"`
	Code   string `json:"code"`
}

// SubmitRequest 非评分题提交
// swagger:model SubmitRequest
type SubmitRequest struct {
	TaskID     string          `json:"taskId" binding:"required"`
	Data       json.RawMessage `json:"data"`
	StartedAt  *time.Time      `json:"startedAt"`
	FinishedAt *time.Time      `json:"finishedAt"`
}

// LogRequest 前端行为日志
// swagger:model LogRequest
type LogRequest struct {
	TaskID string          `json:"taskId" binding:"required"`
	Log    json.RawMessage `json:"log" binding:"required"`
}

// GetNextTask godoc
// @Summary 获取下一个任务
// @Description 根据已完成的任务推算学员的下一个任务，创作题通过后下一道修改题会带上学员自己的代码
// @Tags 任务
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.Task}
// @Failure 400 {object} util.Response "历史记录中的任务ID不在课程中"
// @Failure 404 {object} util.Response "课程已全部完成"
// @Router /api/tasks/next [get]
func (c *TaskController) GetNextTask(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	task, err := c.TaskService.NextTask(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, task)
}

// StartTask godoc
// @Summary 开始任务
// @Description 幂等，重复调用不会重置计时；canContinue 表示记录此前已存在
// @Tags 任务
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TaskRequest true "任务ID"
// @Success 200 {object} util.Response{data=service.StartResult}
// @Failure 400 {object} util.Response "任务ID无效"
// @Router /api/tasks/start [post]
func (c *TaskController) StartTask(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req TaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.TaskService.Start(ctx.Request.Context(), user.UserID, req.TaskID)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// SubmitForGrading godoc
// @Summary 提交代码等待人工评分
// @Description 代码过短会被拒绝且不留记录；被接受后进入待评队列
// @Tags 任务
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CodeRequest true "任务ID与代码"
// @Success 200 {object} util.Response{data=service.SubmitResult}
// @Failure 409 {object} util.Response "任务已完成"
// @Failure 422 {object} util.Response "提交被拒绝"
// @Router /api/tasks/eval-code [post]
func (c *TaskController) SubmitForGrading(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.GradingService.SubmitForGrading(ctx.Request.Context(), user.UserID, req.TaskID, req.Code)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// FinishTask godoc
// @Summary 时间用尽后交卷
// @Description 仅在有效用时达到任务时限后允许，提交不做长度校验
// @Tags 任务
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CodeRequest true "任务ID与代码"
// @Success 200 {object} util.Response{data=service.FinishResult}
// @Failure 409 {object} util.Response "未到时限或任务已完成"
// @Router /api/tasks/finish [post]
func (c *TaskController) FinishTask(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.GradingService.Finish(ctx.Request.Context(), user.UserID, req.TaskID, req.Code)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetGradingStatus godoc
// @Summary 轮询评分状态
// @Tags 任务
// @Produce json
// @Security BearerAuth
// @Param taskId path string true "任务ID"
// @Success 200 {object} util.Response{data=service.StatusView}
// @Failure 404 {object} util.Response "尚未开始该任务"
// @Router /api/tasks/grading-status/{taskId} [get]
func (c *TaskController) GetGradingStatus(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	status, err := c.TaskService.PollStatus(ctx.Request.Context(), user.UserID, ctx.Param("taskId"))
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, status)
}

// SubmitTask godoc
// @Summary 提交非评分题
// @Description 视频、简答、选择题直接完成；重复提交幂等
// @Tags 任务
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SubmitRequest true "提交内容"
// @Success 200 {object} util.Response{data=service.StatusView}
// @Failure 400 {object} util.Response "任务类型不支持"
// @Router /api/tasks/submit [post]
func (c *TaskController) SubmitTask(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	status, err := c.TaskService.SubmitSimple(ctx.Request.Context(), user.UserID, req.TaskID, service.SimpleSubmission{
		Data:       req.Data,
		StartedAt:  req.StartedAt,
		FinishedAt: req.FinishedAt,
	})
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, status)
}

// SaveCode godoc
// @Summary 保存代码草稿
// @Tags 任务
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CodeRequest true "任务ID与代码"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "尚未开始该任务"
// @Router /api/tasks/save-code [post]
func (c *TaskController) SaveCode(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.TaskService.SaveDraft(ctx.Request.Context(), user.UserID, req.TaskID, req.Code); err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// GetSavedCode godoc
// @Summary 获取代码草稿
// @Tags 任务
// @Produce json
// @Security BearerAuth
// @Param taskId path string true "任务ID"
// @Success 200 {object} util.Response{data=service.DraftView}
// @Router /api/tasks/saved-code/{taskId} [get]
func (c *TaskController) GetSavedCode(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	draft, err := c.TaskService.GetDraft(ctx.Request.Context(), user.UserID, ctx.Param("taskId"))
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, draft)
}

// SaveLog godoc
// @Summary 上传前端行为日志
// @Description 覆盖记录中的日志，开启归档时同时写入对象存储
// @Tags 任务
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LogRequest true "日志"
// @Success 200 {object} util.Response{data=service.LogResult}
// @Router /api/tasks/log [post]
func (c *TaskController) SaveLog(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req LogRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.TaskService.SaveLog(ctx.Request.Context(), user.UserID, req.TaskID, req.Log)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, result)
}
