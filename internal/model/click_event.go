package model

import (
	"time"
)

// ClickEvent 点击事件，只追加，永不更新或删除。
// 链接被软删除后历史事件仍然保留，用于统计。
type ClickEvent struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	ShortLinkID uint      `gorm:"not null;index" json:"short_link_id"`
	IPAddress   *string   `gorm:"size:45" json:"ip_address"`
	UserAgent   *string   `gorm:"type:text" json:"user_agent"`
	Referer     *string   `gorm:"type:text" json:"referer"`
	Country     *string   `gorm:"size:100" json:"country"`
	City        *string   `gorm:"size:100" json:"city"`
	Device      string    `gorm:"size:20" json:"device"`
	Browser     string    `gorm:"size:30" json:"browser"`
	OS          string    `gorm:"size:30" json:"os"`
	ClickedAt   time.Time `gorm:"index" json:"clicked_at"`
}

// TableName 指定表名
func (ClickEvent) TableName() string {
	return "click_events"
}
