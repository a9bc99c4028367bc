package handler

import (
	"errors"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Welazure/Item-trade-backend/internal/authz"
	"github.com/Welazure/Item-trade-backend/internal/metrics"
	"github.com/Welazure/Item-trade-backend/internal/models"
	"github.com/Welazure/Item-trade-backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ItemHandler 负责物品的发布、审核、查询和删除
type ItemHandler struct {
	DB        *gorm.DB
	UploadDir string
	PageSize  int
}

func NewItemHandler(db *gorm.DB, uploadDir string, pageSize int) *ItemHandler {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &ItemHandler{DB: db, UploadDir: uploadDir, PageSize: pageSize}
}

var errInsufficientPoints = errors.New("insufficient points")

// ---------- 请求结构 ----------

type createItemReq struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description" binding:"required,max=500"`
	Request     string `json:"request" binding:"required,max=500"`
	CategoryID  uint   `json:"category_id" binding:"required"`
}

type updateItemReq struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description" binding:"required,max=500"`
	Request     string `json:"request" binding:"required,max=500"`
	CategoryID  uint   `json:"category_id" binding:"required"`
}

// ---------- 发布 ----------

// CreateItem 发布一件物品，扣 1 积分。
// 扣分用条件 UPDATE（points >= 1 才扣），和插入同一事务，
// 余额不足时整体回滚，不会出现扣了分没有物品的中间态。
func (h *ItemHandler) CreateItem(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req createItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	var category models.Category
	if err := h.DB.First(&category, req.CategoryID).Error; err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "类别不存在")
		return
	}

	var item models.Item
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND points >= 1", user.ID).
			UpdateColumn("points", gorm.Expr("points - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errInsufficientPoints
		}

		item = models.Item{
			UserID:      user.ID,
			CategoryID:  req.CategoryID,
			Name:        req.Name,
			Description: req.Description,
			Request:     req.Request,
			IsApproved:  false, // 新物品一律待审核
		}
		return tx.Create(&item).Error
	})

	if errors.Is(err, errInsufficientPoints) {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "积分不足，无法发布物品")
		return
	}
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	metrics.ItemsCreated.Inc()
	util.Success(c, util.Response{"item": item})
}

// ---------- 浏览（公开） ----------

// ListApprovedItems 浏览可预订的物品：已过审且没有进行中的预订。
// 支持类别筛选、关键词搜索和分页。
func (h *ItemHandler) ListApprovedItems(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(h.PageSize)))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = h.PageSize
	}

	base := h.DB.Model(&models.Item{}).
		Where("is_approved = ?", true).
		Where("NOT EXISTS (SELECT 1 FROM bookings b WHERE b.item_id = items.id AND b.is_active = 1)")

	if catStr := c.Query("category_id"); catStr != "" {
		catID, err := strconv.Atoi(catStr)
		if err != nil || catID <= 0 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "类别参数错误")
			return
		}
		base = base.Where("category_id = ?", catID)
	}

	// 关键词在名称、描述、求换内容三个字段里任一命中即可
	if term := strings.TrimSpace(c.Query("search")); term != "" {
		like := "%" + term + "%"
		base = base.Where("name LIKE ? OR description LIKE ? OR request LIKE ?", like, like, like)
	}

	// 总数在分页前算，total_pages 由它推出
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	var items []models.Item
	if err := base.Session(&gorm.Session{}).
		Preload("Category").Preload("User").Preload("Media").
		Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&items).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	util.Success(c, util.Response{
		"items":       items,
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": int(math.Ceil(float64(total) / float64(pageSize))),
	})
}

// GetItemByID 物品详情。未过审的物品只有所有者和管理员能看。
func (h *ItemHandler) GetItemByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var item models.Item
	if err := h.DB.Preload("Category").Preload("User").Preload("Media").
		Preload("Bookings.BookerUser").
		First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "物品不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	if !item.IsApproved {
		user := maybeUser(c)
		if user == nil {
			util.Error(c, http.StatusForbidden, util.CodeForbidden, "暂无权限")
			return
		}
		if !authz.For(user.ID, user.Role, item.UserID, 0).Allowed() {
			util.Error(c, http.StatusForbidden, util.CodeForbidden, "暂无权限")
			return
		}
	}

	util.Success(c, util.Response{"item": item})
}

// GetMyItems 我发布的物品（含未过审的）
func (h *ItemHandler) GetMyItems(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var items []models.Item
	if err := h.DB.Preload("Category").Preload("Media").
		Preload("Bookings.BookerUser").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	util.Success(c, util.Response{"items": items})
}

// ---------- 编辑 ----------

// UpdateItem 所有者或管理员可编辑。
// 非管理员改过之后强制回到待审核状态，重新走审核。
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	var item models.Item
	if err := h.DB.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "物品不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	if !authz.For(user.ID, user.Role, item.UserID, 0).Allowed() {
		util.Error(c, http.StatusForbidden, util.CodeForbidden, "暂无权限")
		return
	}

	var category models.Category
	if err := h.DB.First(&category, req.CategoryID).Error; err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "类别不存在")
		return
	}

	item.Name = req.Name
	item.Description = req.Description
	item.Request = req.Request
	item.CategoryID = req.CategoryID
	if !user.Role.IsAdmin() {
		item.IsApproved = false
	}

	if err := h.DB.Save(&item).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{"item": item})
}

// ---------- 删除 ----------

// DeleteItem 所有者或管理员可删除。
// 级联在事务里按序手动做：先预订、再媒体记录、最后物品本身；
// 磁盘文件在事务提交后清理。
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var item models.Item
	if err := h.DB.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "物品不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	if !authz.For(user.ID, user.Role, item.UserID, 0).Allowed() {
		util.Error(c, http.StatusForbidden, util.CodeForbidden, "暂无权限")
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", item.ID).Delete(&models.Booking{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", item.ID).Delete(&models.Media{}).Error; err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "删除失败，请重试")
		return
	}

	// 整个物品的上传目录一起清掉
	if h.UploadDir != "" {
		_ = os.RemoveAll(filepath.Join(h.UploadDir, "items", strconv.FormatUint(uint64(item.ID), 10)))
	}

	util.Success(c, util.Response{"message": "删除成功"})
}

// ---------- 审核（管理员） ----------

// GetPendingItems 待审核列表，按提交时间正序
func (h *ItemHandler) GetPendingItems(c *gin.Context) {
	var items []models.Item
	if err := h.DB.Preload("Category").Preload("User").Preload("Media").
		Where("is_approved = ?", false).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	util.Success(c, util.Response{"items": items})
}

// ApproveItem 审核通过。重复审核已通过的物品不报错，幂等。
func (h *ItemHandler) ApproveItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var item models.Item
	if err := h.DB.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "物品不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	if !item.IsApproved {
		item.IsApproved = true
		if err := h.DB.Save(&item).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
			return
		}
		metrics.ItemsApproved.Inc()
	}

	util.Success(c, util.Response{"item": item})
}
