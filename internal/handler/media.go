package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Welazure/Item-trade-backend/internal/authz"
	"github.com/Welazure/Item-trade-backend/internal/imaging"
	"github.com/Welazure/Item-trade-backend/internal/models"
	"github.com/Welazure/Item-trade-backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MediaHandler 负责物品媒体附件的上传和删除
type MediaHandler struct {
	DB        *gorm.DB
	UploadDir string
	MaxSize   int64 // 单个文件上限（字节）
}

func NewMediaHandler(db *gorm.DB, uploadDir string, maxSizeMB int64) *MediaHandler {
	if maxSizeMB <= 0 {
		maxSizeMB = 20
	}
	return &MediaHandler{
		DB:        db,
		UploadDir: uploadDir,
		MaxSize:   maxSizeMB << 20,
	}
}

// 允许的扩展名及其媒体类型
var allowedExtensions = map[string]models.MediaType{
	".jpg":  models.MediaImage,
	".jpeg": models.MediaImage,
	".png":  models.MediaImage,
	".gif":  models.MediaImage,
	".mp4":  models.MediaVideo,
	".mov":  models.MediaVideo,
	".avi":  models.MediaVideo,
}

// UploadMedia 给物品上传一个附件。
// 主图规则：物品还没有任何附件时，这次上传自动成为主图；
// 显式指定 is_primary 时把旧主图一并取消，两步在同一事务里。
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	itemID, ok := parseID(c, "itemId")
	if !ok {
		return
	}

	var item models.Item
	if err := h.DB.First(&item, itemID).Error; err != nil {
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

	file, err := c.FormFile("file")
	if err != nil || file.Size == 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请选择文件")
		return
	}
	if file.Size > h.MaxSize {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "文件过大")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	mediaType, ok := allowedExtensions[ext]
	if !ok {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "不支持的文件类型")
		return
	}

	isPrimary := c.PostForm("is_primary") == "true"

	// 存储名用 uuid，避免用户文件名冲突或穿越
	itemDir := filepath.Join(h.UploadDir, "items", strconv.FormatUint(uint64(item.ID), 10))
	if err := os.MkdirAll(itemDir, 0o755); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存文件失败")
		return
	}
	storedName := uuid.NewString() + ext
	dstPath := filepath.Join(itemDir, storedName)

	if err := c.SaveUploadedFile(file, dstPath); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存文件失败")
		return
	}

	// 图片顺手生成缩略图，失败不阻塞上传
	var thumbPath string
	if mediaType == models.MediaImage && ext != ".gif" {
		tp := filepath.Join(itemDir, "thumb_"+strings.TrimSuffix(storedName, ext)+".jpg")
		if err := imaging.Thumbnail(dstPath, tp); err == nil {
			thumbPath = h.webPath(item.ID, filepath.Base(tp))
		}
	}

	media := models.Media{
		ItemID:      item.ID,
		FileName:    filepath.Base(file.Filename),
		FilePath:    h.webPath(item.ID, storedName),
		ThumbPath:   thumbPath,
		ContentType: file.Header.Get("Content-Type"),
		FileSize:    file.Size,
		MediaType:   mediaType,
		UploadedAt:  time.Now().UTC(),
	}

	// 取消旧主图和插入新记录必须同事务，否则并发或失败时
	// 会出现零个或两个主图的窗口
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if isPrimary {
			if err := tx.Model(&models.Media{}).
				Where("item_id = ? AND is_primary = ?", item.ID, true).
				Update("is_primary", false).Error; err != nil {
				return err
			}
		}

		var existing int64
		if err := tx.Model(&models.Media{}).
			Where("item_id = ?", item.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		media.IsPrimary = isPrimary || existing == 0

		return tx.Create(&media).Error
	})
	if err != nil {
		// 数据库没写进去，落盘的文件也一并清掉
		_ = os.Remove(dstPath)
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{"media": media})
}

// DeleteMedia 删除一个附件，记录和磁盘文件都删
func (h *MediaHandler) DeleteMedia(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	id, ok := parseID(c, "mediaId")
	if !ok {
		return
	}

	var media models.Media
	if err := h.DB.First(&media, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "附件不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	var item models.Item
	if err := h.DB.First(&item, media.ItemID).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	if !authz.For(user.ID, user.Role, item.UserID, 0).Allowed() {
		util.Error(c, http.StatusForbidden, util.CodeForbidden, "暂无权限")
		return
	}

	if err := h.DB.Delete(&media).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "删除失败，请重试")
		return
	}

	for _, p := range []string{media.FilePath, media.ThumbPath} {
		if p != "" {
			_ = os.Remove(h.diskPath(p))
		}
	}

	util.Success(c, util.Response{"message": "删除成功"})
}

// webPath 对外暴露的访问路径
func (h *MediaHandler) webPath(itemID uint, name string) string {
	return fmt.Sprintf("/uploads/items/%d/%s", itemID, name)
}

// diskPath 把访问路径换回磁盘路径
func (h *MediaHandler) diskPath(webPath string) string {
	rel := strings.TrimPrefix(webPath, "/uploads/")
	return filepath.Join(h.UploadDir, filepath.FromSlash(rel))
}
