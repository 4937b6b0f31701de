package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"shortlink-platform/internal/model"
)

// DailyClicks 某个自然日（UTC）的点击数
type DailyClicks struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

// CountryClicks 按国家分组的点击数
type CountryClicks struct {
	Country string `json:"country"`
	Clicks  int64  `json:"clicks"`
}

// DeviceClicks 按设备类型分组的点击数
type DeviceClicks struct {
	Device string `json:"device"`
	Clicks int64  `json:"clicks"`
}

// RefererClicks 按来源页分组的点击数
type RefererClicks struct {
	Referer string `json:"referer"`
	Clicks  int64  `json:"clicks"`
}

// ClickRepository 点击事件的持久化端口：写路径只追加，读路径做分组聚合
type ClickRepository interface {
	Append(ctx context.Context, event *model.ClickEvent) error
	CountByLinkIDs(ctx context.Context, linkIDs []uint) (int64, error)
	CountByLinkIDsSince(ctx context.Context, linkIDs []uint, since time.Time) (int64, error)
	TrendsByDay(ctx context.Context, linkID uint, since time.Time) ([]DailyClicks, error)
	GroupByCountry(ctx context.Context, linkID uint, limit int) ([]CountryClicks, error)
	GroupByDevice(ctx context.Context, linkID uint) ([]DeviceClicks, error)
	GroupByReferer(ctx context.Context, linkID uint, limit int) ([]RefererClicks, error)
}

// GormClickRepository 基于 GORM 的 ClickRepository 实现
type GormClickRepository struct {
	db *gorm.DB
}

// NewClickRepository 创建 GormClickRepository 实例
func NewClickRepository(db *gorm.DB) *GormClickRepository {
	return &GormClickRepository{db: db}
}

// Append 追加一条点击事件
func (r *GormClickRepository) Append(ctx context.Context, event *model.ClickEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// CountByLinkIDs 统计一组链接的全部点击数
func (r *GormClickRepository) CountByLinkIDs(ctx context.Context, linkIDs []uint) (int64, error) {
	if len(linkIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ClickEvent{}).
		Where("short_link_id IN ?", linkIDs).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count clicks: %w", err)
	}
	return count, nil
}

// CountByLinkIDsSince 统计一组链接自某时刻起的点击数
func (r *GormClickRepository) CountByLinkIDsSince(ctx context.Context, linkIDs []uint, since time.Time) (int64, error) {
	if len(linkIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ClickEvent{}).
		Where("short_link_id IN ? AND clicked_at >= ?", linkIDs, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count clicks since: %w", err)
	}
	return count, nil
}

// TrendsByDay 按自然日（UTC 存储的 clicked_at）分组，日期升序；
// 没有点击的日期不会出现在结果中，补零由调用方自理
func (r *GormClickRepository) TrendsByDay(ctx context.Context, linkID uint, since time.Time) ([]DailyClicks, error) {
	var trends []DailyClicks
	err := r.db.WithContext(ctx).
		Model(&model.ClickEvent{}).
		Select("DATE(clicked_at) AS date, COUNT(*) AS clicks").
		Where("short_link_id = ? AND clicked_at >= ?", linkID, since).
		Group("DATE(clicked_at)").
		Order("date ASC").
		Scan(&trends).Error
	if err != nil {
		return nil, fmt.Errorf("click trends: %w", err)
	}
	return trends, nil
}

// GroupByCountry 按国家聚合，country 为空的行归入 "unknown"；
// 点击数相同的国家按名称升序，保证结果稳定
func (r *GormClickRepository) GroupByCountry(ctx context.Context, linkID uint, limit int) ([]CountryClicks, error) {
	var rows []CountryClicks
	err := r.db.WithContext(ctx).
		Model(&model.ClickEvent{}).
		Select("COALESCE(country, 'unknown') AS country, COUNT(*) AS clicks").
		Where("short_link_id = ?", linkID).
		Group("COALESCE(country, 'unknown')").
		Order("clicks DESC, country ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("geo breakdown: %w", err)
	}
	return rows, nil
}

// GroupByDevice 按设备类型聚合，不限制条目数
func (r *GormClickRepository) GroupByDevice(ctx context.Context, linkID uint) ([]DeviceClicks, error) {
	var rows []DeviceClicks
	err := r.db.WithContext(ctx).
		Model(&model.ClickEvent{}).
		Select("device, COUNT(*) AS clicks").
		Where("short_link_id = ?", linkID).
		Group("device").
		Order("clicks DESC, device ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("device breakdown: %w", err)
	}
	return rows, nil
}

// GroupByReferer 按来源页聚合，直接访问（referer 为空）归入 "direct"
func (r *GormClickRepository) GroupByReferer(ctx context.Context, linkID uint, limit int) ([]RefererClicks, error) {
	var rows []RefererClicks
	err := r.db.WithContext(ctx).
		Model(&model.ClickEvent{}).
		Select("COALESCE(referer, 'direct') AS referer, COUNT(*) AS clicks").
		Where("short_link_id = ?", linkID).
		Group("COALESCE(referer, 'direct')").
		Order("clicks DESC, referer ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("referer breakdown: %w", err)
	}
	return rows, nil
}
