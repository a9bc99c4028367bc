package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Welazure/Item-trade-backend/internal/models"
	"github.com/Welazure/Item-trade-backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// currentUser 取出 AuthMiddleware 放进 context 的用户；
// 拿不到时写 401 响应并返回 nil，调用方直接 return 即可。
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get("currentUser")
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "未登录")
		return nil
	}
	user, ok := v.(*models.User)
	if !ok || user == nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "未登录")
		return nil
	}
	return user
}

// maybeUser 与 currentUser 相同，但未登录时不写响应，返回 nil。
// 挂 OptionalAuth 的接口用。
func maybeUser(c *gin.Context) *models.User {
	if v, ok := c.Get("currentUser"); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}

// parseID 解析路径里的数字 ID，不合法时写 400 响应
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "ID 不合法")
		return 0, false
	}
	return uint(id), true
}

// isUniqueViolation 判断存储层错误是否唯一约束冲突。
// gorm 的 sqlite 驱动不总是翻译成 ErrDuplicatedKey，这里兜底匹配原始错误文本。
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
