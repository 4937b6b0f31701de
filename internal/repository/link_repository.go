package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"shortlink-platform/internal/model"
)

// LinkRepository 短链接的持久化端口，业务层只依赖这个接口
type LinkRepository interface {
	Create(ctx context.Context, link *model.ShortLink) error
	FindByID(ctx context.Context, id uint) (*model.ShortLink, error)
	// FindActiveByCode 以单条查询匹配短码或别名，且仅返回未禁用、未过期的链接
	FindActiveByCode(ctx context.Context, code string, now time.Time) (*model.ShortLink, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.ShortLink, error)
	UpdateAlias(ctx context.Context, id uint, alias *string) error
	Deactivate(ctx context.Context, id uint) error
	// InUse 检查某个值是否已被任意链接（含软删除）的短码或别名占用，
	// excludeID 非零时排除指定记录自身
	InUse(ctx context.Context, value string, excludeID uint) (bool, error)
	// OwnedIDs 返回某用户全部链接的 ID（含软删除，点击统计要覆盖已删链接）
	OwnedIDs(ctx context.Context, ownerID string) ([]uint, error)
	CountActiveByOwner(ctx context.Context, ownerID string) (int64, error)
}

// GormLinkRepository 基于 GORM 的 LinkRepository 实现
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository 创建 GormLinkRepository 实例
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// Create 插入新链接。短码或别名撞上唯一索引时返回 gorm.ErrDuplicatedKey，
// 调用方以此作为碰撞信号（而不是只依赖插入前的检查）。
func (r *GormLinkRepository) Create(ctx context.Context, link *model.ShortLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// FindByID 按主键查找链接（不过滤软删除状态，所有权校验需要读到禁用记录）
func (r *GormLinkRepository) FindByID(ctx context.Context, id uint) (*model.ShortLink, error) {
	var link model.ShortLink
	if err := r.db.WithContext(ctx).First(&link, id).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// FindActiveByCode 查找可重定向的链接，is_active 与过期判断放在同一条谓词里，
// 避免与并发删除产生两次查询之间的竞态
func (r *GormLinkRepository) FindActiveByCode(ctx context.Context, code string, now time.Time) (*model.ShortLink, error) {
	var link model.ShortLink
	err := r.db.WithContext(ctx).
		Where("(short_code = ? OR custom_alias = ?) AND is_active = ?", code, code, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ListByOwner 返回某用户的全部活跃链接，按创建时间倒序
func (r *GormLinkRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.ShortLink, error) {
	var links []model.ShortLink
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND is_active = ?", ownerID, true).
		Order("created_at DESC, id DESC").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("list links by owner: %w", err)
	}
	return links, nil
}

// UpdateAlias 更新自定义别名，alias 为 nil 表示清除
func (r *GormLinkRepository) UpdateAlias(ctx context.Context, id uint, alias *string) error {
	return r.db.WithContext(ctx).
		Model(&model.ShortLink{}).
		Where("id = ?", id).
		Update("custom_alias", alias).Error
}

// Deactivate 软删除：只置 is_active=false，保留记录与点击历史
func (r *GormLinkRepository) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&model.ShortLink{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

// InUse 检查值是否占用了任意一条记录的 short_code 或 custom_alias 列
func (r *GormLinkRepository) InUse(ctx context.Context, value string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&model.ShortLink{}).
		Where("short_code = ? OR custom_alias = ?", value, value)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check code in use: %w", err)
	}
	return count > 0, nil
}

// OwnedIDs 返回某用户名下全部链接的主键，不过滤软删除状态
func (r *GormLinkRepository) OwnedIDs(ctx context.Context, ownerID string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&model.ShortLink{}).
		Where("owner_id = ?", ownerID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list owned link ids: %w", err)
	}
	return ids, nil
}

// CountActiveByOwner 统计某用户当前活跃的链接数
func (r *GormLinkRepository) CountActiveByOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ShortLink{}).
		Where("owner_id = ? AND is_active = ?", ownerID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count active links: %w", err)
	}
	return count, nil
}
