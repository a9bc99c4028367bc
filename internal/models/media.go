package models

import "time"

// MediaType 按扩展名推导的媒体类型
type MediaType string

const (
	MediaImage MediaType = "Image"
	MediaVideo MediaType = "Video"
)

// Media 物品的一个媒体附件。
// 每件物品最多一条 IsPrimary=true 的记录，首个上传的附件自动成为主图。
type Media struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ItemID      uint      `gorm:"index;not null" json:"item_id"`
	FileName    string    `gorm:"size:255;not null" json:"file_name"`
	FilePath    string    `gorm:"size:500;not null" json:"file_path"`
	ThumbPath   string    `gorm:"size:500" json:"thumb_path,omitempty"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	FileSize    int64     `json:"file_size"`
	MediaType   MediaType `gorm:"size:20;not null" json:"media_type"`
	IsPrimary   bool      `gorm:"not null;default:false" json:"is_primary"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
