package app

import (
	"school_exam_backend/internal/config"
	"school_exam_backend/internal/middleware"
	"school_exam_backend/internal/model"

	"school_exam_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// familyRoutes maps the URL segment of each assessment surface to its family
// value. The segment uses a hyphen where the column uses an underscore.
var familyRoutes = []struct {
	segment string
	family  model.AssessmentFamily
}{
	{"library", model.FamilyLibrary},
	{"exam-body", model.FamilyExamBody},
	{"explore", model.FamilyExplore},
}

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", monitoring.PrometheusHandler())

	router.GET("/api/health", c.health.HealthCheck)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerLearnerRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

// one route group per assessment family, all served by the same handlers
func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	for _, fr := range familyRoutes {
		group := rg.Group("/" + fr.segment + "/assessments")
		{
			group.GET("", c.assessment.ListAssessments(fr.family))
			group.GET("/attempts", c.assessment.ListMyAttempts(fr.family))
			group.GET("/attempts/:attemptId", c.assessment.GetAttempt)
			group.GET("/:id", c.assessment.GetAssessment(fr.family))
			group.GET("/:id/questions", c.assessment.GetQuestions(fr.family))
			group.POST("/:id/submit", c.assessment.Submit(fr.family))
		}
	}
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher, model.Director))
	{
		teacher.POST("/assessments", c.authoring.CreateAssessment)
		teacher.GET("/assessments", c.authoring.ListAssessments)
		teacher.GET("/assessments/:id", c.authoring.GetAssessment)
		teacher.PUT("/assessments/:id", c.authoring.UpdateAssessment)
		teacher.PATCH("/assessments/:id/status", c.authoring.ChangeStatus)
		teacher.DELETE("/assessments/:id", c.authoring.DeleteAssessment)

		teacher.POST("/assessments/:id/questions", c.authoring.AddQuestion)
		teacher.PUT("/assessments/:id/questions/:questionId", c.authoring.UpdateQuestion)
		teacher.DELETE("/assessments/:id/questions/:questionId", c.authoring.DeleteQuestion)

		teacher.GET("/assessments/:id/attempts", c.authoring.ListAttempts)
		teacher.GET("/attempts/:attemptId", c.authoring.GetAttempt)
	}
}
