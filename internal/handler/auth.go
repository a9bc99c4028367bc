package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Welazure/Item-trade-backend/internal/models"
	"github.com/Welazure/Item-trade-backend/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitialPoints 注册即送的积分，够发两件物品
const InitialPoints = 2

// AuthHandler 负责登录/注册相关接口
type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

func NewAuthHandler(db *gorm.DB, jwtSecret, issuer string, ttlHours int) *AuthHandler {
	if ttlHours <= 0 {
		ttlHours = 24
	}
	return &AuthHandler{
		DB:        db,
		JWTSecret: jwtSecret,
		Issuer:    issuer,
		TokenTTL:  time.Duration(ttlHours) * time.Hour,
	}
}

// ---------- 注册 ----------

type registerReq struct {
	Username    string `json:"username" binding:"required"`       // 3-20 位，字母数字下划线
	Password    string `json:"password" binding:"required"`       // 8-32 且强度检查
	Email       string `json:"email" binding:"required,email,max=50"`
	Name        string `json:"name" binding:"required,max=50"`
	Address     string `json:"address" binding:"required,max=50"`
	PhoneNumber string `json:"phone_number" binding:"required,max=20"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	// 用户名规则：3-20 位，仅字母、数字、下划线
	usernameRe := regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	if !usernameRe.MatchString(req.Username) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "用户名必须为3-20位字母、数字或下划线")
		return
	}

	// 密码强度检查
	if !isStrongPassword(req.Password) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "密码需8-32位，且包含大写、小写字母和数字")
		return
	}

	// 用户名、邮箱、手机号都要求唯一，一次查询后分别提示
	var existing models.User
	err := h.DB.Where("username = ? OR email = ? OR phone_number = ?",
		req.Username, req.Email, req.PhoneNumber).First(&existing).Error
	if err == nil {
		switch {
		case existing.Username == req.Username:
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "用户名已存在")
		case existing.Email == req.Email:
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "邮箱已被注册")
		default:
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "手机号已被注册")
		}
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询用户失败")
		return
	}

	// 使用 bcrypt cost=12 做密码哈希
	const bcryptCost = 12
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "密码加密失败")
		return
	}

	user := models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		Email:        req.Email,
		Name:         req.Name,
		Address:      req.Address,
		PhoneNumber:  req.PhoneNumber,
		Points:       InitialPoints,
		RegisteredAt: time.Now().UTC(),
	}
	if err := h.DB.Create(&user).Error; err != nil {
		// 预查询到插入之间被别的请求抢注时会触发唯一约束
		if isUniqueViolation(err) {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, uniqueConflictMessage(err))
			return
		}
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "创建用户失败")
		return
	}

	token, err := util.GenerateToken(h.JWTSecret, h.Issuer, user.ID, user.Role, h.TokenTTL)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "生成令牌失败")
		return
	}

	util.Success(c, util.Response{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"points":   user.Points,
		},
	})
}

// 根据唯一约束报错里携带的列名给出对应提示。
// SQLite 的报错形如 "UNIQUE constraint failed: users.email"。
func uniqueConflictMessage(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.email"):
		return "邮箱已被注册"
	case strings.Contains(msg, "users.phone_number"):
		return "手机号已被注册"
	default:
		return "用户名已存在"
	}
}

// 检查密码强度：8-32 位，包含大小写字母和数字
func isStrongPassword(pwd string) bool {
	if len(pwd) < 8 || len(pwd) > 32 {
		return false
	}
	var hasUpper, hasLower, hasDigit bool
	for _, ch := range pwd {
		switch {
		case ch >= 'A' && ch <= 'Z':
			hasUpper = true
		case ch >= 'a' && ch <= 'z':
			hasLower = true
		case ch >= '0' && ch <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}

// ---------- 登录 ----------

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	var user models.User
	if err := h.DB.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 用户不存在和密码错误返回同一条消息
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "用户名或密码错误")
			return
		}
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询用户失败")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "用户名或密码错误")
		return
	}

	token, err := util.GenerateToken(h.JWTSecret, h.Issuer, user.ID, user.Role, h.TokenTTL)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "生成令牌失败")
		return
	}

	util.Success(c, util.Response{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
			"points":   user.Points,
		},
	})
}
