package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/models"
)

func rbacRouter(claims *models.JWTClaims, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if claims != nil {
		router.Use(func(c *gin.Context) {
			c.Set(ContextUserKey, claims)
			c.Next()
		})
	}
	router.GET("/staff/:id/schedule", RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRBACUnauthorizedWithoutClaims(t *testing.T) {
	router := rbacRouter(nil, string(models.RoleAdmin))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/staff/staff-1/schedule", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRBACForbiddenRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent}
	router := rbacRouter(claims, string(models.RoleAdmin))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/staff/staff-1/schedule", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACAllowsRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	router := rbacRouter(claims, string(models.RoleAdmin))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/staff/staff-1/schedule", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestRBACAllowsSelf(t *testing.T) {
	claims := &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}
	router := rbacRouter(claims, string(models.RoleAdmin), "SELF")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/staff/staff-1/schedule", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestRBACSelfRejectsOtherUser(t *testing.T) {
	claims := &models.JWTClaims{UserID: "staff-2", Role: models.RoleStaff}
	router := rbacRouter(claims, string(models.RoleAdmin), "SELF")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/staff/staff-1/schedule", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}
