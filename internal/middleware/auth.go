package middleware

import (
	"net/http"
	"strings"

	"civicreport/internal/access"
	"civicreport/internal/models"
	"civicreport/pkg/auth"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthMiddleware validates the bearer token and stores the authenticated
// identity on the request context.
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header is required",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			c.Abort()
			return
		}

		role, ok := models.RoleFromString(claims.Role)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Set("role", string(role))

		c.Next()
	}
}

// RequireAdmin rejects requests whose token does not carry the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleValue, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			c.Abort()
			return
		}

		if models.Role(roleValue.(string)) != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Admin access required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CurrentActor rebuilds the access.Actor set by AuthMiddleware. The second
// return is false when the context carries no valid identity.
func CurrentActor(c *gin.Context) (access.Actor, bool) {
	idValue, exists := c.Get("user_id")
	if !exists {
		return access.Actor{}, false
	}
	userID, err := primitive.ObjectIDFromHex(idValue.(string))
	if err != nil {
		return access.Actor{}, false
	}

	roleValue, exists := c.Get("role")
	if !exists {
		return access.Actor{}, false
	}

	return access.Actor{
		ID:   userID,
		Role: models.Role(roleValue.(string)),
	}, true
}
