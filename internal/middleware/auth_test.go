package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"school_exam_backend/internal/config"
	"school_exam_backend/internal/model"
	"school_exam_backend/internal/util"

	"github.com/gin-gonic/gin"
)

func testRouter(cfg *config.Config, roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	group := router.Group("/", AuthMiddleware(cfg))
	if len(roles) > 0 {
		group.Use(RoleMiddleware(roles...))
	}
	group.GET("/ping", func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"userId": claims.UserID})
	})
	return router
}

func request(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "middleware-test-secret"
	router := testRouter(cfg)

	if w := request(router, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status = %d, want 401", w.Code)
	}

	if w := request(router, "not-a-token"); w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d, want 401", w.Code)
	}

	token, err := util.GenerateJWT(7, 3, model.Student, cfg.JWT.Secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT() error = %v", err)
	}
	if w := request(router, token); w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", w.Code)
	}
}

func TestRoleMiddleware(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "middleware-test-secret"
	router := testRouter(cfg, model.Teacher)

	tests := []struct {
		role model.UserRole
		want int
	}{
		{model.Teacher, http.StatusOK},
		{model.Admin, http.StatusOK}, // admins pass every gate
		{model.Student, http.StatusForbidden},
		{model.Director, http.StatusForbidden},
	}

	for _, tt := range tests {
		token, err := util.GenerateJWT(7, 3, tt.role, cfg.JWT.Secret, time.Hour)
		if err != nil {
			t.Fatalf("GenerateJWT() error = %v", err)
		}
		if w := request(router, token); w.Code != tt.want {
			t.Errorf("role %s: status = %d, want %d", tt.role, w.Code, tt.want)
		}
	}
}
