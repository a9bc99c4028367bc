package handler

import (
	"net/http"

	"github.com/Welazure/Item-trade-backend/internal/models"
	"github.com/Welazure/Item-trade-backend/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ProfileHandler 负责个人资料相关接口
type ProfileHandler struct {
	DB *gorm.DB
}

func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{DB: db}
}

// GetMyProfile 查看自己的资料，附带物品数和进行中的预订数
func (h *ProfileHandler) GetMyProfile(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var itemsCount int64
	if err := h.DB.Model(&models.Item{}).
		Where("user_id = ?", user.ID).
		Count(&itemsCount).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	var activeBookings int64
	if err := h.DB.Model(&models.Booking{}).
		Where("booker_user_id = ? AND is_active = ?", user.ID, true).
		Count(&activeBookings).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	util.Success(c, util.Response{
		"profile": gin.H{
			"id":                   user.ID,
			"username":             user.Username,
			"email":                user.Email,
			"name":                 user.Name,
			"address":              user.Address,
			"phone_number":         user.PhoneNumber,
			"role":                 user.Role,
			"points":               user.Points,
			"registered_at":        user.RegisteredAt,
			"items_count":          itemsCount,
			"active_bookings_count": activeBookings,
		},
	})
}

type updateProfileReq struct {
	Email       string `json:"email" binding:"required,email,max=50"`
	Name        string `json:"name" binding:"required,max=50"`
	Address     string `json:"address" binding:"required,max=50"`
	PhoneNumber string `json:"phone_number" binding:"required,max=20"`
}

// UpdateMyProfile 修改资料。邮箱和手机号不能撞上其他账号。
func (h *ProfileHandler) UpdateMyProfile(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req updateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	var count int64
	if err := h.DB.Model(&models.User{}).
		Where("id <> ? AND email = ?", user.ID, req.Email).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusConflict, util.CodeConflict, "邮箱已被其他账号使用")
		return
	}

	if err := h.DB.Model(&models.User{}).
		Where("id <> ? AND phone_number = ?", user.ID, req.PhoneNumber).
		Count(&count).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}
	if count > 0 {
		util.Error(c, http.StatusConflict, util.CodeConflict, "手机号已被其他账号使用")
		return
	}

	user.Email = req.Email
	user.Name = req.Name
	user.Address = req.Address
	user.PhoneNumber = req.PhoneNumber

	if err := h.DB.Save(user).Error; err != nil {
		if isUniqueViolation(err) {
			util.Error(c, http.StatusConflict, util.CodeConflict, "邮箱或手机号已被其他账号使用")
			return
		}
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{"message": "资料已更新"})
}

type changePasswordReq struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword 修改密码，需要先验证旧密码
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "旧密码错误")
		return
	}

	if !isStrongPassword(req.NewPassword) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "密码需8-32位，且包含大写、小写字母和数字")
		return
	}

	const bcryptCost = 12
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "密码加密失败")
		return
	}

	if err := h.DB.Model(user).Update("password_hash", string(hash)).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{"message": "密码已修改"})
}

// DeleteAccount 注销账号。
// 名下还有物品或有预订记录（作为预订人）的账号不允许注销，
// 对应外键的 RESTRICT 语义，先做显式检查再删。
func (h *ProfileHandler) DeleteAccount(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var itemsCount int64
	if err := h.DB.Model(&models.Item{}).
		Where("user_id = ?", user.ID).
		Count(&itemsCount).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}
	if itemsCount > 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请先删除名下发布的物品")
		return
	}

	var bookingsCount int64
	if err := h.DB.Model(&models.Booking{}).
		Where("booker_user_id = ?", user.ID).
		Count(&bookingsCount).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}
	if bookingsCount > 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "存在预订记录的账号不能注销")
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.AuditLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "注销失败，请重试")
		return
	}

	util.Success(c, util.Response{"message": "账号已注销"})
}
