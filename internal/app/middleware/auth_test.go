package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrawatt/terrawatt/internal/infrastructure/database/models"
)

// adminRouter builds a route behind the admin gate, with auth replaced by a
// middleware injecting the given user context.
func adminRouter(userCtx *UserContext) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userCtx != nil {
			c.Set("user", userCtx)
			c.Set("user_id", userCtx.UserID)
		}
		c.Next()
	})
	router.GET("/admin", AdminRequiredMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doAdminRequest(router *gin.Engine) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	return rec
}

func TestAdminRequiredMiddleware_AllowsAdmin(t *testing.T) {
	router := adminRouter(&UserContext{
		UserID:   uuid.New(),
		Email:    "admin@example.com",
		Role:     models.UserRoleAdmin,
		IsActive: true,
	})

	rec := doAdminRequest(router)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRequiredMiddleware_RejectsNonAdmin(t *testing.T) {
	router := adminRouter(&UserContext{
		UserID:   uuid.New(),
		Email:    "reviewer@example.com",
		Role:     models.UserRoleReviewer,
		IsActive: true,
	})

	rec := doAdminRequest(router)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminRequiredMiddleware_RejectsUnauthenticated(t *testing.T) {
	router := adminRouter(nil)

	rec := doAdminRequest(router)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetUserID(c)
	assert.False(t, ok)

	want := uuid.New()
	c.Set("user_id", want)

	got, ok := GetUserID(c)
	require.True(t, ok)
	assert.Equal(t, want, got)
}
