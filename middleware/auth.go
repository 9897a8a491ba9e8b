package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/services"
	"github.com/vnkhanh/e-learning-backend/utils"
)

const sessionKey = "session"

// RoleResolver tra role của user trong database
type RoleResolver interface {
	ResolveRole(ctx context.Context, userID uuid.UUID) (models.Role, error)
}

// AuthMiddleware xác thực access token của Supabase và gắn Session vào context
func AuthMiddleware(verifier *utils.TokenVerifier, roles RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Thiếu hoặc sai Authorization header"})
			return
		}

		claims, err := verifier.VerifyToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token không hợp lệ hoặc hết hạn"})
			return
		}
		userID, _ := claims.UserID()

		role, err := roles.ResolveRole(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Không xác định được vai trò người dùng"})
			return
		}

		c.Set(sessionKey, services.Session{UserID: userID, Role: role})
		c.Set("user_id", userID.String())
		c.Next()
	}
}

// bearerToken lấy token từ Authorization, hoặc X-Auth-Token cho client iOS
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		header = c.GetHeader("X-Auth-Token")
	}
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// GetSession trả Session rỗng nếu request chưa qua AuthMiddleware
func GetSession(c *gin.Context) services.Session {
	if v, ok := c.Get(sessionKey); ok {
		if sess, ok := v.(services.Session); ok {
			return sess
		}
	}
	return services.Session{}
}
