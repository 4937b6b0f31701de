package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"shortlink-platform/internal/model"
	"shortlink-platform/internal/repository"
)

var testDBSeq int64

// setupDB 为每个测试创建独立的内存数据库
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "无法连接到内存数据库")

	require.NoError(t, db.AutoMigrate(&model.ShortLink{}, &model.ClickEvent{}), "数据库迁移失败")

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func testLogger() *zap.SugaredLogger {
	logger, _ := zap.NewDevelopment()
	return logger.Sugar()
}

func newTestRegistry(t *testing.T, db *gorm.DB) *Registry {
	t.Helper()
	return NewRegistry(repository.NewLinkRepository(db), testLogger())
}

func strPtr(s string) *string {
	return &s
}

// fakeLinkRepository 基于内存的 LinkRepository，并发测试用：
// 避免内存 sqlite 在高并发写入下的锁争用干扰断言
type fakeLinkRepository struct {
	mu     sync.Mutex
	nextID uint
	links  map[uint]*model.ShortLink
}

func newFakeLinkRepository() *fakeLinkRepository {
	return &fakeLinkRepository{links: make(map[uint]*model.ShortLink)}
}

func (f *fakeLinkRepository) Create(ctx context.Context, link *model.ShortLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// 模拟唯一索引：短码或别名撞上任何现有值即拒绝
	for _, existing := range f.links {
		if f.valueTaken(existing, link.ShortCode) {
			return gorm.ErrDuplicatedKey
		}
		if link.CustomAlias != nil && f.valueTaken(existing, *link.CustomAlias) {
			return gorm.ErrDuplicatedKey
		}
	}
	f.nextID++
	link.ID = f.nextID
	link.CreatedAt = time.Now()
	stored := *link
	f.links[link.ID] = &stored
	return nil
}

func (f *fakeLinkRepository) valueTaken(link *model.ShortLink, value string) bool {
	return link.ShortCode == value || (link.CustomAlias != nil && *link.CustomAlias == value)
}

func (f *fakeLinkRepository) FindByID(ctx context.Context, id uint) (*model.ShortLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *link
	return &copied, nil
}

func (f *fakeLinkRepository) FindActiveByCode(ctx context.Context, code string, now time.Time) (*model.ShortLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, link := range f.links {
		if f.valueTaken(link, code) && link.IsActive {
			if link.ExpiresAt != nil && !link.ExpiresAt.After(now) {
				continue
			}
			copied := *link
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLinkRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.ShortLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ShortLink
	for _, link := range f.links {
		if link.IsActive && link.OwnerID != nil && *link.OwnerID == ownerID {
			out = append(out, *link)
		}
	}
	return out, nil
}

func (f *fakeLinkRepository) UpdateAlias(ctx context.Context, id uint, alias *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if link, ok := f.links[id]; ok {
		link.CustomAlias = alias
	}
	return nil
}

func (f *fakeLinkRepository) Deactivate(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if link, ok := f.links[id]; ok {
		link.IsActive = false
	}
	return nil
}

func (f *fakeLinkRepository) InUse(ctx context.Context, value string, excludeID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, link := range f.links {
		if id == excludeID {
			continue
		}
		if f.valueTaken(link, value) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLinkRepository) OwnedIDs(ctx context.Context, ownerID string) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uint
	for id, link := range f.links {
		if link.OwnerID != nil && *link.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeLinkRepository) CountActiveByOwner(ctx context.Context, ownerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, link := range f.links {
		if link.IsActive && link.OwnerID != nil && *link.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (f *fakeLinkRepository) codes() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	codes := make(map[string]int)
	for _, link := range f.links {
		if link.IsActive {
			codes[link.ShortCode]++
		}
	}
	return codes
}
