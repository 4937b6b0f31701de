package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"shortlink-platform/internal/model"
	"shortlink-platform/internal/repository"
)

// seedClick 直接写入一条指定时间/属性的点击事件
func seedClick(t *testing.T, db *gorm.DB, linkID uint, clickedAt time.Time, mutate func(*model.ClickEvent)) {
	t.Helper()
	event := &model.ClickEvent{
		ShortLinkID: linkID,
		Device:      "desktop",
		Browser:     "Other",
		OS:          "Other",
		ClickedAt:   clickedAt,
	}
	if mutate != nil {
		mutate(event)
	}
	require.NoError(t, db.Create(event).Error)
}

func newTestAggregator(db *gorm.DB) *Aggregator {
	return NewAggregator(repository.NewLinkRepository(db), repository.NewClickRepository(db))
}

func TestAggregator_UserSummary(t *testing.T) {
	db := setupDB(t)
	registry := newTestRegistry(t, db)
	aggregator := newTestAggregator(db)
	owner := "user-1"

	linkA, err := registry.Create(context.Background(), "https://example.com/a", nil, &owner)
	require.NoError(t, err)
	linkB, err := registry.Create(context.Background(), "https://example.com/b", nil, &owner)
	require.NoError(t, err)

	now := time.Now().UTC()
	// 2 条最近 30 天内的点击
	seedClick(t, db, linkA.ID, now.AddDate(0, 0, -1), nil)
	seedClick(t, db, linkB.ID, now.AddDate(0, 0, -5), nil)
	// 3 条更早的点击
	for i := 0; i < 3; i++ {
		seedClick(t, db, linkA.ID, now.AddDate(0, 0, -40), nil)
	}
	// 别人的点击不计入
	other := "user-2"
	otherLink, err := registry.Create(context.Background(), "https://example.com/other", nil, &other)
	require.NoError(t, err)
	seedClick(t, db, otherLink.ID, now, nil)

	summary, err := aggregator.UserSummary(context.Background(), owner)
	require.NoError(t, err)

	assert.EqualValues(t, 2, summary.TotalLinks)
	assert.EqualValues(t, 5, summary.TotalClicks)
	assert.EqualValues(t, 2, summary.ClicksThisMonth, "最近 30 天窗口应只含 2 条")
}

// 软删除的链接不计入 TotalLinks，但它的历史点击仍计入 TotalClicks
func TestAggregator_UserSummary_SoftDeletedLinkKeepsClicks(t *testing.T) {
	db := setupDB(t)
	registry := newTestRegistry(t, db)
	aggregator := newTestAggregator(db)
	owner := "user-1"

	link, err := registry.Create(context.Background(), "https://example.com", nil, &owner)
	require.NoError(t, err)
	seedClick(t, db, link.ID, time.Now().UTC(), nil)

	require.NoError(t, registry.SoftDelete(context.Background(), link.ID, Requester{UserID: owner}))

	summary, err := aggregator.UserSummary(context.Background(), owner)
	require.NoError(t, err)
	assert.EqualValues(t, 0, summary.TotalLinks)
	assert.EqualValues(t, 1, summary.TotalClicks, "删除链接不应抹掉点击历史")
}

func TestAggregator_UserSummary_NoLinks(t *testing.T) {
	aggregator := newTestAggregator(setupDB(t))

	summary, err := aggregator.UserSummary(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary, "没有链接时摘要应全为零而不是报错")
}

func TestAggregator_ClickTrends(t *testing.T) {
	db := setupDB(t)
	aggregator := newTestAggregator(db)

	// 固定在正午，避免加减几小时跨过日期边界
	now := time.Now().UTC()
	noon := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.UTC)
	day1 := noon.AddDate(0, 0, -3)
	day2 := noon.AddDate(0, 0, -2)
	day3 := noon.AddDate(0, 0, -1)

	// 3 个不同的自然日，中间隔着没有点击的日期
	seedClick(t, db, 1, day1, nil)
	seedClick(t, db, 1, day1.Add(time.Hour), nil)
	seedClick(t, db, 1, day2, nil)
	seedClick(t, db, 1, day3, nil)
	seedClick(t, db, 1, day3.Add(2*time.Hour), nil)
	seedClick(t, db, 1, day3.Add(3*time.Hour), nil)
	// 其他链接的点击不掺和
	seedClick(t, db, 2, day2, nil)

	trends, err := aggregator.ClickTrends(context.Background(), 1, 30)
	require.NoError(t, err)
	require.Len(t, trends, 3, "只应出现有点击的日期")

	assert.Equal(t, day1.Format("2006-01-02"), trends[0].Date)
	assert.EqualValues(t, 2, trends[0].Clicks)
	assert.Equal(t, day2.Format("2006-01-02"), trends[1].Date)
	assert.EqualValues(t, 1, trends[1].Clicks)
	assert.Equal(t, day3.Format("2006-01-02"), trends[2].Date)
	assert.EqualValues(t, 3, trends[2].Clicks)
}

func TestAggregator_ClickTrends_WindowExcludesOldClicks(t *testing.T) {
	db := setupDB(t)
	aggregator := newTestAggregator(db)

	now := time.Now().UTC()
	seedClick(t, db, 1, now.AddDate(0, 0, -2), nil)
	seedClick(t, db, 1, now.AddDate(0, 0, -40), nil)

	trends, err := aggregator.ClickTrends(context.Background(), 1, 7)
	require.NoError(t, err)
	require.Len(t, trends, 1, "窗口外的点击不应出现")
}

func TestAggregator_GeoBreakdown(t *testing.T) {
	db := setupDB(t)
	aggregator := newTestAggregator(db)
	now := time.Now().UTC()

	country := func(name string) func(*model.ClickEvent) {
		return func(e *model.ClickEvent) { e.Country = &name }
	}

	seedClick(t, db, 1, now, country("Germany"))
	seedClick(t, db, 1, now, country("Germany"))
	seedClick(t, db, 1, now, country("France"))
	seedClick(t, db, 1, now, nil) // country 为 NULL

	rows, err := aggregator.GeoBreakdown(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Germany", rows[0].Country)
	assert.EqualValues(t, 2, rows[0].Clicks)
	// France 和 unknown 各 1 次，按国家名升序决出次序
	assert.Equal(t, "France", rows[1].Country)
	assert.Equal(t, "unknown", rows[2].Country)
}

func TestAggregator_GeoBreakdown_CappedAtTen(t *testing.T) {
	db := setupDB(t)
	aggregator := newTestAggregator(db)
	now := time.Now().UTC()

	for i := 0; i < 12; i++ {
		name := string(rune('A'+i)) + "-land"
		seedClick(t, db, 1, now, func(e *model.ClickEvent) { e.Country = &name })
	}

	rows, err := aggregator.GeoBreakdown(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, rows, 10, "地域分布最多返回 10 条")
}

func TestAggregator_DeviceBreakdown(t *testing.T) {
	db := setupDB(t)
	aggregator := newTestAggregator(db)
	now := time.Now().UTC()

	device := func(name string) func(*model.ClickEvent) {
		return func(e *model.ClickEvent) { e.Device = name }
	}

	seedClick(t, db, 1, now, device("mobile"))
	seedClick(t, db, 1, now, device("mobile"))
	seedClick(t, db, 1, now, device("desktop"))
	seedClick(t, db, 1, now, device("tablet"))

	rows, err := aggregator.DeviceBreakdown(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "mobile", rows[0].Device)
	assert.EqualValues(t, 2, rows[0].Clicks)
	// desktop 和 tablet 同为 1 次，按名称升序
	assert.Equal(t, "desktop", rows[1].Device)
	assert.Equal(t, "tablet", rows[2].Device)
}

func TestAggregator_RefererBreakdown(t *testing.T) {
	db := setupDB(t)
	aggregator := newTestAggregator(db)
	now := time.Now().UTC()

	referer := func(url string) func(*model.ClickEvent) {
		return func(e *model.ClickEvent) { e.Referer = &url }
	}

	seedClick(t, db, 1, now, referer("https://news.ycombinator.com/"))
	seedClick(t, db, 1, now, referer("https://news.ycombinator.com/"))
	seedClick(t, db, 1, now, nil) // 直接访问

	rows, err := aggregator.RefererBreakdown(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "https://news.ycombinator.com/", rows[0].Referer)
	assert.EqualValues(t, 2, rows[0].Clicks)
	assert.Equal(t, "direct", rows[1].Referer, "无来源页的点击归入 direct")
}

func TestAggregator_EmptyResults(t *testing.T) {
	aggregator := newTestAggregator(setupDB(t))

	trends, err := aggregator.ClickTrends(context.Background(), 99, 30)
	require.NoError(t, err)
	assert.Empty(t, trends, "没有数据时返回空序列而不是错误")

	rows, err := aggregator.GeoBreakdown(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
