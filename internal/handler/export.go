package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Welazure/Item-trade-backend/internal/models"
	"github.com/Welazure/Item-trade-backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportHandler 管理员导出报表
type ExportHandler struct {
	DB *gorm.DB
}

func NewExportHandler(db *gorm.DB) *ExportHandler {
	return &ExportHandler{DB: db}
}

// ExportBookingsXLSX 导出全部预订为 XLSX
func (h *ExportHandler) ExportBookingsXLSX(c *gin.Context) {
	var bookings []models.Booking
	if err := h.DB.Preload("Item.User").Preload("BookerUser").
		Order("booked_at DESC").
		Find(&bookings).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Bookings"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "物品", "物品所有者", "预订人", "预订时间", "状态", "取消时间"}
	for i, hd := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, hd)
	}

	for row, b := range bookings {
		status := "进行中"
		cancelled := ""
		if !b.IsActive {
			status = "已取消"
			if b.CancelledAt != nil {
				cancelled = b.CancelledAt.Format("2006-01-02 15:04")
			}
		}
		values := []interface{}{
			b.ID,
			b.Item.Name,
			b.Item.User.Username,
			b.BookerUser.Username,
			b.BookedAt.Format("2006-01-02 15:04"),
			status,
			cancelled,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	h.writeXLSX(c, f, "bookings")
}

// ExportItemsXLSX 导出全部物品为 XLSX
func (h *ExportHandler) ExportItemsXLSX(c *gin.Context) {
	var items []models.Item
	if err := h.DB.Preload("User").Preload("Category").
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Items"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "名称", "类别", "发布人", "是否过审", "发布时间"}
	for i, hd := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, hd)
	}

	for row, it := range items {
		approved := "否"
		if it.IsApproved {
			approved = "是"
		}
		values := []interface{}{
			it.ID,
			it.Name,
			it.Category.Name,
			it.User.Username,
			approved,
			it.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	h.writeXLSX(c, f, "items")
}

func (h *ExportHandler) writeXLSX(c *gin.Context, f *excelize.File, name string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s_%s.xlsx\"",
		name, time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "导出失败")
	}
}
