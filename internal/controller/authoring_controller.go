package controller

import (
	"school_exam_backend/internal/model"
	"school_exam_backend/internal/service"
	"school_exam_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AuthoringController is the teacher surface: assessment and question CRUD,
// lifecycle transitions, and attempt review for owned assessments.
type AuthoringController struct {
	Assessments *service.AssessmentService
	Attempts    *service.AttemptService
}

func NewAuthoringController(assessments *service.AssessmentService, attempts *service.AttemptService) *AuthoringController {
	return &AuthoringController{Assessments: assessments, Attempts: attempts}
}

// @Summary Create an assessment
// @Tags Authoring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.AssessmentRequest true "Assessment settings"
// @Success 201 {object} util.Response
// @Router /api/teacher/assessments [post]
func (c *AuthoringController) CreateAssessment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Assessments.CreateAssessment(user.UserID, user.SchoolID, req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// @Summary List own assessments
// @Tags Authoring
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments [get]
func (c *AuthoringController) ListAssessments(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	page, limit := pagination(ctx)

	items, total, err := c.Assessments.ListMine(user.UserID, page, limit)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
}

// @Summary Assessment detail with questions and answer keys
// @Tags Authoring
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id} [get]
func (c *AuthoringController) GetAssessment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	a, err := c.Assessments.GetOwnedAssessment(id, user.UserID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary Update assessment settings
// @Tags Authoring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Param body body service.AssessmentRequest true "Assessment settings"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id} [put]
func (c *AuthoringController) UpdateAssessment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Assessments.UpdateAssessment(id, user.UserID, req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

type statusRequest struct {
	Status model.AssessmentStatus `json:"status" binding:"required,oneof=draft published active closed archived"`
}

// @Summary Move an assessment through its lifecycle
// @Tags Authoring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Param body body statusRequest true "Target status"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id}/status [patch]
func (c *AuthoringController) ChangeStatus(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req statusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Assessments.ChangeStatus(id, user.UserID, req.Status)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary Delete an assessment without attempts
// @Tags Authoring
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id} [delete]
func (c *AuthoringController) DeleteAssessment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.Assessments.DeleteAssessment(id, user.UserID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.SuccessMsg(ctx, "deleted", nil)
}

// @Summary Add a question with options and answer key
// @Tags Authoring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Param body body service.QuestionRequest true "Question"
// @Success 201 {object} util.Response
// @Router /api/teacher/assessments/{id}/questions [post]
func (c *AuthoringController) AddQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Assessments.AddQuestion(id, user.UserID, req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary Replace a question
// @Tags Authoring
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Param questionId path int true "Question ID"
// @Param body body service.QuestionRequest true "Question"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id}/questions/{questionId} [put]
func (c *AuthoringController) UpdateQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.Assessments.UpdateQuestion(id, questionID, user.UserID, req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary Delete a question
// @Tags Authoring
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Param questionId path int true "Question ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id}/questions/{questionId} [delete]
func (c *AuthoringController) DeleteQuestion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}

	if err := c.Assessments.DeleteQuestion(id, questionID, user.UserID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.SuccessMsg(ctx, "deleted", nil)
}

// @Summary List attempts across users for an owned assessment
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response
// @Router /api/teacher/assessments/{id}/attempts [get]
func (c *AuthoringController) ListAttempts(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	page, limit := pagination(ctx)

	rows, total, err := c.Assessments.ListAttemptsForReview(id, user.UserID, page, limit)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: rows, Total: total, Page: page, Limit: limit})
}

// @Summary Full attempt detail for review
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "Attempt ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/attempts/{attemptId} [get]
func (c *AuthoringController) GetAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	detail, err := c.Attempts.GetAttemptForReview(ctx.Param("attemptId"), user.UserID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}
