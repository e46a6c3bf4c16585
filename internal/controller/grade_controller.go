package controller

import (
	"coding_steps_backend/internal/service"
	"coding_steps_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GradeController struct {
	GradingService *service.GradingService
}

func NewGradeController(gradingService *service.GradingService) *GradeController {
	return &GradeController{GradingService: gradingService}
}

// ResolveRequest 管理员评分请求
// swagger:model ResolveRequest
type ResolveRequest struct {
	LearnerID       uint   `json:"learnerId" binding:"required"`
	TaskID          string `json:"taskId" binding:"required"`
	SubmissionIndex *int   `json:"submissionIndex" binding:"required,min=0"`
	Passed          *bool  `json:"passed" binding:"required"`
	Feedback        string `json:"feedback"`
}

// @Summary 列出待人工评分的提交
// @Description 按提交时间倒序
// @Tags 评分
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.PendingEntry}
// @Failure 403 {object} util.Response "非管理员"
// @Router /api/admin/grading/pending [get]
func (c *GradeController) ListPending(ctx *gin.Context) {
	entries, err := c.GradingService.ListPending(ctx.Request.Context())
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// @Summary 管理员裁定一次提交
// @Tags 评分
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ResolveRequest true "learnerId, taskId, submissionIndex, passed, feedback"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "提交序号越界"
// @Failure 403 {object} util.Response "非管理员"
// @Failure 409 {object} util.Response "该提交已评分"
// @Router /api/admin/grading/resolve [post]
func (c *GradeController) Resolve(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	if !user.IsAdmin() {
		util.Forbidden(ctx)
		return
	}

	var body ResolveRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.GradingService.Resolve(ctx.Request.Context(), user.UserID, service.ResolveRequest{
		LearnerID:       body.LearnerID,
		TaskID:          body.TaskID,
		SubmissionIndex: *body.SubmissionIndex,
		Passed:          *body.Passed,
		Feedback:        body.Feedback,
	})
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
