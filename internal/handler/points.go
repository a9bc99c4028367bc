package handler

import (
	"errors"
	"net/http"

	"github.com/Welazure/Item-trade-backend/internal/models"
	"github.com/Welazure/Item-trade-backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PointsHandler 负责积分查询和充值
type PointsHandler struct {
	DB *gorm.DB
}

func NewPointsHandler(db *gorm.DB) *PointsHandler {
	return &PointsHandler{DB: db}
}

// 充值套餐。定价在外部支付网关，这里只认套餐 ID 和对应的积分数。
const (
	package5000  = "package_5000"  // 3 积分
	package10000 = "package_10000" // 8 积分
)

var packagePoints = map[string]int{
	package5000:  3,
	package10000: 8,
}

// GetBalance 查询当前积分余额
func (h *PointsHandler) GetBalance(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	// 重新查一次，拿到最新余额
	var fresh models.User
	if err := h.DB.First(&fresh, user.ID).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	util.Success(c, util.Response{"points": fresh.Points})
}

type buyPointsReq struct {
	PackageID string `json:"package_id" binding:"required"`
}

// BuyPoints 购买积分套餐。支付本身在外部完成，这里只做入账。
func (h *PointsHandler) BuyPoints(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req buyPointsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	amount, ok := packagePoints[req.PackageID]
	if !ok {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "无效的套餐")
		return
	}

	if err := h.credit(user.ID, amount); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "充值失败，请重试")
		return
	}

	var fresh models.User
	if err := h.DB.First(&fresh, user.ID).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	util.Success(c, util.Response{
		"message":     "积分已到账",
		"new_balance": fresh.Points,
	})
}

// credit 给用户加任意正数积分，单条原子 UPDATE。
// 套餐只是入口处的映射，入账本身不关心套餐。
func (h *PointsHandler) credit(userID uint, amount int) error {
	if amount <= 0 {
		return errors.New("credit amount must be positive")
	}
	res := h.DB.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("points", gorm.Expr("points + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
