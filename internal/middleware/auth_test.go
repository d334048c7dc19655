package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"civicreport/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestRouter(jwtManager *auth.JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(jwtManager))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString("user_id"),
			"role":    c.GetString("role"),
		})
	})
	router.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	router := newTestRouter(auth.NewJWTManager("secret", time.Hour))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	router := newTestRouter(auth.NewJWTManager("secret", time.Hour))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	router := newTestRouter(manager)

	token, err := manager.GenerateToken("507f1f77bcf86cd799439011", "user@example.com", "citizen")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "507f1f77bcf86cd799439011")
	assert.Contains(t, w.Body.String(), "citizen")
}

func TestAuthMiddlewareUnknownRole(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	router := newTestRouter(manager)

	token, err := manager.GenerateToken("507f1f77bcf86cd799439011", "user@example.com", "superuser")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdmin(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	router := newTestRouter(manager)

	citizenToken, err := manager.GenerateToken(primitive.NewObjectID().Hex(), "c@example.com", "citizen")
	require.NoError(t, err)
	adminToken, err := manager.GenerateToken(primitive.NewObjectID().Hex(), "a@example.com", "admin")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+citizenToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCurrentActor(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("valid context", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		id := primitive.NewObjectID()
		c.Set("user_id", id.Hex())
		c.Set("role", "admin")

		actor, ok := CurrentActor(c)
		require.True(t, ok)
		assert.Equal(t, id, actor.ID)
		assert.True(t, actor.IsAdmin())
	})

	t.Run("missing identity", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		_, ok := CurrentActor(c)
		assert.False(t, ok)
	})

	t.Run("bad object id", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("user_id", "not-hex")
		c.Set("role", "citizen")
		_, ok := CurrentActor(c)
		assert.False(t, ok)
	})
}
