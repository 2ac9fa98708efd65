package controller

import (
	"errors"
	"strconv"

	"school_exam_backend/internal/model"
	"school_exam_backend/internal/service"
	"school_exam_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AssessmentController serves the learner surface. One instance handles all
// three assessment families; each route group binds the handlers to its own
// family.
type AssessmentController struct {
	Assessments *service.AssessmentService
	Attempts    *service.AttemptService
}

func NewAssessmentController(assessments *service.AssessmentService, attempts *service.AttemptService) *AssessmentController {
	return &AssessmentController{Assessments: assessments, Attempts: attempts}
}

func pagination(ctx *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id < 1 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrAssessmentNotFound),
		errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrQuestionNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrAssessmentNotOpenYet),
		errors.Is(err, util.ErrAssessmentClosed),
		errors.Is(err, util.ErrAttemptsExhausted),
		errors.Is(err, util.ErrAttemptForbidden),
		errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx, err.Error())
	case errors.Is(err, util.ErrValidation),
		errors.Is(err, util.ErrHasAttempts):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// @Summary List open assessments for a family
// @Tags Assessments
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response
// @Router /api/{family}/assessments [get]
func (c *AssessmentController) ListAssessments(family model.AssessmentFamily) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := util.GetUserFromContext(ctx)
		if user == nil {
			util.Unauthorized(ctx)
			return
		}
		page, limit := pagination(ctx)

		items, total, err := c.Assessments.ListForFamily(user.SchoolID, family, page, limit)
		if err != nil {
			respondServiceError(ctx, err)
			return
		}

		util.Success(ctx, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
	}
}

// @Summary Assessment detail with the caller's attempt standing
// @Tags Assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Success 200 {object} util.Response
// @Router /api/{family}/assessments/{id} [get]
func (c *AssessmentController) GetAssessment(family model.AssessmentFamily) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := util.GetUserFromContext(ctx)
		if user == nil {
			util.Unauthorized(ctx)
			return
		}
		id, ok := pathID(ctx, "id")
		if !ok {
			return
		}

		view, err := c.Assessments.GetAssessmentForUser(id, user.UserID, user.SchoolID, family)
		if err != nil {
			respondServiceError(ctx, err)
			return
		}
		util.Success(ctx, view)
	}
}

// @Summary Question set for taking the assessment
// @Tags Assessments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Success 200 {object} util.Response
// @Router /api/{family}/assessments/{id}/questions [get]
func (c *AssessmentController) GetQuestions(family model.AssessmentFamily) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := util.GetUserFromContext(ctx)
		if user == nil {
			util.Unauthorized(ctx)
			return
		}
		id, ok := pathID(ctx, "id")
		if !ok {
			return
		}

		questions, err := c.Assessments.GetQuestionsForUser(ctx.Request.Context(), id, user.UserID, user.SchoolID, family)
		if err != nil {
			respondServiceError(ctx, err)
			return
		}
		util.Success(ctx, questions)
	}
}

// @Summary Submit answers and receive the graded attempt
// @Tags Assessments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assessment ID"
// @Param body body service.SubmitRequest true "Submitted responses"
// @Success 200 {object} util.Response
// @Router /api/{family}/assessments/{id}/submit [post]
func (c *AssessmentController) Submit(family model.AssessmentFamily) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := util.GetUserFromContext(ctx)
		if user == nil {
			util.Unauthorized(ctx)
			return
		}
		id, ok := pathID(ctx, "id")
		if !ok {
			return
		}

		var req service.SubmitRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}

		result, err := c.Attempts.Submit(id, user.UserID, user.SchoolID, family, req)
		if err != nil {
			respondServiceError(ctx, err)
			return
		}
		util.SuccessMsg(ctx, result.Message, result)
	}
}

// @Summary List the caller's attempts within a family
// @Tags Attempts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} util.Response
// @Router /api/{family}/assessments/attempts [get]
func (c *AssessmentController) ListMyAttempts(family model.AssessmentFamily) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := util.GetUserFromContext(ctx)
		if user == nil {
			util.Unauthorized(ctx)
			return
		}
		page, limit := pagination(ctx)

		attempts, total, err := c.Attempts.ListAttempts(user.UserID, family, page, limit)
		if err != nil {
			respondServiceError(ctx, err)
			return
		}
		util.Success(ctx, util.PageResponse{List: attempts, Total: total, Page: page, Limit: limit})
	}
}

// @Summary Attempt detail, own attempts only
// @Tags Attempts
// @Produce json
// @Security BearerAuth
// @Param attemptId path string true "Attempt ID"
// @Success 200 {object} util.Response
// @Router /api/{family}/assessments/attempts/{attemptId} [get]
func (c *AssessmentController) GetAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	detail, err := c.Attempts.GetAttempt(ctx.Param("attemptId"), user.UserID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}
