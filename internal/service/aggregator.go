package service

import (
	"context"
	"time"

	"shortlink-platform/internal/errors"
	"shortlink-platform/internal/repository"
)

// Summary 某用户的统计摘要
type Summary struct {
	TotalLinks      int64 `json:"total_links"`
	TotalClicks     int64 `json:"total_clicks"`
	ClicksThisMonth int64 `json:"clicks_this_month"`
}

// Aggregator 只读的统计聚合器，与 Recorder 的写入并发运行，
// 结果是尽力而为的快照，不保证看到最近几毫秒的点击。
type Aggregator struct {
	links  repository.LinkRepository
	clicks repository.ClickRepository
}

// NewAggregator 创建 Aggregator 实例
func NewAggregator(links repository.LinkRepository, clicks repository.ClickRepository) *Aggregator {
	return &Aggregator{links: links, clicks: clicks}
}

// UserSummary 统计某用户的链接与点击概况。
// TotalLinks 只数活跃链接；TotalClicks 覆盖该用户全部链接（含已删除）的历史点击；
// ClicksThisMonth 是滚动的最近 30 天窗口，不是自然月。
func (s *Aggregator) UserSummary(ctx context.Context, ownerID string) (Summary, error) {
	totalLinks, err := s.links.CountActiveByOwner(ctx, ownerID)
	if err != nil {
		return Summary{}, errors.Persistence("summary", err)
	}

	ids, err := s.links.OwnedIDs(ctx, ownerID)
	if err != nil {
		return Summary{}, errors.Persistence("summary", err)
	}

	totalClicks, err := s.clicks.CountByLinkIDs(ctx, ids)
	if err != nil {
		return Summary{}, errors.Persistence("summary", err)
	}

	since := time.Now().UTC().AddDate(0, 0, -30)
	recentClicks, err := s.clicks.CountByLinkIDsSince(ctx, ids, since)
	if err != nil {
		return Summary{}, errors.Persistence("summary", err)
	}

	return Summary{
		TotalLinks:      totalLinks,
		TotalClicks:     totalClicks,
		ClicksThisMonth: recentClicks,
	}, nil
}

// ClickTrends 返回最近 days 天内每个有点击的自然日（UTC）的点击数，日期升序；
// 没有点击的日期不出现，需要稠密序列的调用方自行补零
func (s *Aggregator) ClickTrends(ctx context.Context, shortLinkID uint, days int) ([]repository.DailyClicks, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	trends, err := s.clicks.TrendsByDay(ctx, shortLinkID, since)
	if err != nil {
		return nil, errors.Persistence("click trends", err)
	}
	return trends, nil
}

// GeoBreakdown 按国家分组，点击数降序、同数按国家名升序，最多 10 条
func (s *Aggregator) GeoBreakdown(ctx context.Context, shortLinkID uint) ([]repository.CountryClicks, error) {
	rows, err := s.clicks.GroupByCountry(ctx, shortLinkID, 10)
	if err != nil {
		return nil, errors.Persistence("geo breakdown", err)
	}
	return rows, nil
}

// DeviceBreakdown 按设备类型分组，不限条数
func (s *Aggregator) DeviceBreakdown(ctx context.Context, shortLinkID uint) ([]repository.DeviceClicks, error) {
	rows, err := s.clicks.GroupByDevice(ctx, shortLinkID)
	if err != nil {
		return nil, errors.Persistence("device breakdown", err)
	}
	return rows, nil
}

// RefererBreakdown 按来源页分组，最多 10 条
func (s *Aggregator) RefererBreakdown(ctx context.Context, shortLinkID uint) ([]repository.RefererClicks, error) {
	rows, err := s.clicks.GroupByReferer(ctx, shortLinkID, 10)
	if err != nil {
		return nil, errors.Persistence("referer breakdown", err)
	}
	return rows, nil
}
