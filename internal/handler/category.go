package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Welazure/Item-trade-backend/internal/models"
	"github.com/Welazure/Item-trade-backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CategoryHandler 负责类别接口。查询公开，增删改仅管理员。
type CategoryHandler struct {
	DB *gorm.DB
}

func NewCategoryHandler(db *gorm.DB) *CategoryHandler {
	return &CategoryHandler{DB: db}
}

// ListCategories 全部类别，按名称排序
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	var categories []models.Category
	if err := h.DB.Order("name ASC").Find(&categories).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}
	util.Success(c, util.Response{"categories": categories})
}

// GetCategoryByID 类别详情，附带该类别下已过审的物品
func (h *CategoryHandler) GetCategoryByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var category models.Category
	if err := h.DB.Preload("Items", "is_approved = ?", true).
		First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "类别不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	util.Success(c, util.Response{"category": category})
}

type categoryReq struct {
	Name string `json:"name" binding:"required,max=50"`
}

// CreateCategory 新增类别（管理员）
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req categoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	category := models.Category{Name: strings.TrimSpace(req.Name)}
	if err := h.DB.Create(&category).Error; err != nil {
		if isUniqueViolation(err) {
			util.Error(c, http.StatusConflict, util.CodeConflict, "类别已存在")
			return
		}
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{"category": category})
}

// UpdateCategory 重命名类别（管理员）
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req categoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "类别不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	category.Name = strings.TrimSpace(req.Name)
	if err := h.DB.Save(&category).Error; err != nil {
		if isUniqueViolation(err) {
			util.Error(c, http.StatusConflict, util.CodeConflict, "类别已存在")
			return
		}
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{"category": category})
}

// DeleteCategory 删除类别（管理员）。
// 还有物品挂在这个类别下时拒绝删除，RESTRICT 语义显式检查。
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "类别不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	var itemCount int64
	if err := h.DB.Model(&models.Item{}).
		Where("category_id = ?", id).
		Count(&itemCount).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}
	if itemCount > 0 {
		util.Error(c, http.StatusConflict, util.CodeConflict, "该类别下还有物品，无法删除")
		return
	}

	if err := h.DB.Delete(&category).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "删除失败，请重试")
		return
	}

	util.Success(c, util.Response{"message": "删除成功"})
}
