package model

import (
	"time"
)

// ShortLink 短链接模型
// ShortCode 与 CustomAlias 共享同一个唯一命名空间：任何一个值被占用后，
// 即使链接被软删除（IsActive=false）也永久保留，不会被重新分配。
type ShortLink struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	// 自定义别名直接充当短码，列宽要容得下 50 字符的别名，不能只按生成码的 8 字符算
	ShortCode   string     `gorm:"size:50;uniqueIndex;not null" json:"short_code"`
	CustomAlias *string    `gorm:"size:50;uniqueIndex" json:"custom_alias"`
	OriginalURL string     `gorm:"type:text;not null" json:"original_url"`
	OwnerID     *string    `gorm:"size:64;index" json:"owner_id"` // 为空表示匿名链接
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (ShortLink) TableName() string {
	return "short_links"
}
