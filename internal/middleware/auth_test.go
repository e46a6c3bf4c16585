package middleware

import (
	"coding_steps_backend/internal/model"
	"coding_steps_backend/internal/util"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-test-secret-test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(secret), func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).UserID)
	})
	r.GET("/admin", AuthMiddleware(secret), RoleMiddleware(model.Admin), func(c *gin.Context) {
		util.Success(c, "ok")
	})
	return r
}

func call(t *testing.T, r *gin.Engine, path, token string) (*httptest.ResponseRecorder, util.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp util.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	w, resp := call(t, r, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", resp.Kind)

	w, _ = call(t, r, "/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := util.GenerateJWT(7, model.Student, "another-secret", time.Hour)
	require.NoError(t, err)
	w, _ = call(t, r, "/me", other)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired, err := util.GenerateJWT(7, model.Student, secret, -time.Minute)
	require.NoError(t, err)
	w, _ = call(t, r, "/me", expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := util.GenerateJWT(7, model.Student, secret, time.Hour)
	require.NoError(t, err)
	w, resp = call(t, r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 7, resp.Data)
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter()

	student, err := util.GenerateJWT(7, model.Student, secret, time.Hour)
	require.NoError(t, err)
	w, resp := call(t, r, "/admin", student)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "unauthorized", resp.Kind)
	assert.False(t, resp.Retryable)

	admin, err := util.GenerateJWT(1, model.Admin, secret, time.Hour)
	require.NoError(t, err)
	w, _ = call(t, r, "/admin", admin)
	assert.Equal(t, http.StatusOK, w.Code)
}
