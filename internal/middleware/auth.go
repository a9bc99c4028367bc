package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/Welazure/Item-trade-backend/internal/models"
	"github.com/Welazure/Item-trade-backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// extractToken 依次从 Header、查询参数、Cookie 里取 token
func extractToken(c *gin.Context) string {
	// 1) Header: Authorization: Bearer xxx
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	// 2) URL 查询参数 ?token=xxx（用于下载等无法自定义 Header 的场景）
	if t := c.Query("token"); t != "" {
		return t
	}

	// 3) Cookie trade_token
	if cookie, err := c.Cookie("trade_token"); err == nil {
		return cookie
	}
	return ""
}

// loadUser 校验 token 并查出用户行，失败返回 nil
func loadUser(c *gin.Context, jwtSecret string, db *gorm.DB) (*models.User, string) {
	tokenStr := extractToken(c)
	if tokenStr == "" {
		return nil, "未登录"
	}

	claims, err := util.ParseToken(jwtSecret, tokenStr)
	if err != nil || claims.ExpiresAt == nil || claims.ExpiresAt.Before(time.Now()) {
		return nil, "登录已失效，请重新登录"
	}

	var user models.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return nil, "用户不存在"
	}
	return &user, ""
}

// AuthMiddleware 校验 JWT，并在 context 里放入当前用户。
func AuthMiddleware(jwtSecret string, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, msg := loadUser(c, jwtSecret, db)
		if user == nil {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, msg)
			c.Abort()
			return
		}
		c.Set("currentUser", user)
		c.Next()
	}
}

// OptionalAuth 与 AuthMiddleware 相同，但未登录时放行。
// 用于公开可见、登录后内容更多的接口（物品详情等）。
func OptionalAuth(jwtSecret string, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, _ := loadUser(c, jwtSecret, db); user != nil {
			c.Set("currentUser", user)
		}
		c.Next()
	}
}

// RequireAdmin 仅管理员可访问，必须挂在 AuthMiddleware 之后。
// 拒绝时只回一条笼统消息，不解释原因。
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get("currentUser")
		user, _ := v.(*models.User)
		if !ok || user == nil || !user.Role.IsAdmin() {
			util.Error(c, http.StatusForbidden, util.CodeForbidden, "暂无权限")
			c.Abort()
			return
		}
		c.Next()
	}
}
