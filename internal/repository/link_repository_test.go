package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"shortlink-platform/internal/model"
)

var testDBSeq int64

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "无法连接到内存数据库")
	require.NoError(t, db.AutoMigrate(&model.ShortLink{}, &model.ClickEvent{}), "数据库迁移失败")

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func strPtr(s string) *string {
	return &s
}

// 唯一索引冲突必须被翻译成 gorm.ErrDuplicatedKey，
// Registry 的碰撞重试完全依赖这个信号
func TestLinkRepository_Create_DuplicateKeyTranslated(t *testing.T) {
	repo := NewLinkRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.ShortLink{ShortCode: "abcd1234", OriginalURL: "https://example.com", IsActive: true}))

	err := repo.Create(ctx, &model.ShortLink{ShortCode: "abcd1234", OriginalURL: "https://example.com/other", IsActive: true})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

// 多个无别名的链接可以共存：custom_alias 的唯一索引不拦 NULL
func TestLinkRepository_Create_MultipleNullAliases(t *testing.T) {
	repo := NewLinkRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.ShortLink{ShortCode: "aaaa0001", OriginalURL: "https://example.com/a", IsActive: true}))
	require.NoError(t, repo.Create(ctx, &model.ShortLink{ShortCode: "aaaa0002", OriginalURL: "https://example.com/b", IsActive: true}))
}

// InUse 同时覆盖 short_code 和 custom_alias 两列
func TestLinkRepository_InUse_BothColumns(t *testing.T) {
	repo := NewLinkRepository(setupDB(t))
	ctx := context.Background()

	link := &model.ShortLink{
		ShortCode:   "code0001",
		CustomAlias: strPtr("alias-one"),
		OriginalURL: "https://example.com",
		IsActive:    true,
	}
	require.NoError(t, repo.Create(ctx, link))

	for _, value := range []string{"code0001", "alias-one"} {
		used, err := repo.InUse(ctx, value, 0)
		require.NoError(t, err)
		assert.True(t, used, "%q 应被视为已占用", value)
	}

	used, err := repo.InUse(ctx, "free0001", 0)
	require.NoError(t, err)
	assert.False(t, used)

	// 排除自身后，记录自己的值不算占用
	used, err = repo.InUse(ctx, "alias-one", link.ID)
	require.NoError(t, err)
	assert.False(t, used)
}

func TestLinkRepository_FindActiveByCode(t *testing.T) {
	repo := NewLinkRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	link := &model.ShortLink{
		ShortCode:   "code0001",
		CustomAlias: strPtr("alias-one"),
		OriginalURL: "https://example.com",
		IsActive:    true,
	}
	require.NoError(t, repo.Create(ctx, link))

	// 短码和别名都能命中同一条记录
	byCode, err := repo.FindActiveByCode(ctx, "code0001", now)
	require.NoError(t, err)
	byAlias, err := repo.FindActiveByCode(ctx, "alias-one", now)
	require.NoError(t, err)
	assert.Equal(t, byCode.ID, byAlias.ID)

	// 软删除后两个入口都失效
	require.NoError(t, repo.Deactivate(ctx, link.ID))
	_, err = repo.FindActiveByCode(ctx, "code0001", now)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestLinkRepository_FindActiveByCode_Expired(t *testing.T) {
	repo := NewLinkRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	expired := now.Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, &model.ShortLink{
		ShortCode:   "gone0001",
		OriginalURL: "https://example.com",
		IsActive:    true,
		ExpiresAt:   &expired,
	}))

	_, err := repo.FindActiveByCode(ctx, "gone0001", now)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "过期链接不应被解析")

	future := now.Add(time.Hour)
	require.NoError(t, repo.Create(ctx, &model.ShortLink{
		ShortCode:   "live0001",
		OriginalURL: "https://example.com",
		IsActive:    true,
		ExpiresAt:   &future,
	}))

	_, err = repo.FindActiveByCode(ctx, "live0001", now)
	assert.NoError(t, err, "未到期的链接应正常解析")
}
