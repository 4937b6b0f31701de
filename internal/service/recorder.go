package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"shortlink-platform/internal/errors"
	"shortlink-platform/internal/geoip"
	"shortlink-platform/internal/model"
	"shortlink-platform/internal/repository"
)

// RawClick 一次点击的原始上下文，空字符串表示字段缺失
type RawClick struct {
	IPAddress string
	UserAgent string
	Referer   string
}

// Recorder 点击事件记录器：解析 UA、查询归属地并追加事件
type Recorder struct {
	clicks repository.ClickRepository
	geo    geoip.Resolver
	logger *zap.SugaredLogger
}

// NewRecorder 创建 Recorder 实例
func NewRecorder(clicks repository.ClickRepository, geo geoip.Resolver, logger *zap.SugaredLogger) *Recorder {
	if geo == nil {
		geo = geoip.NoopResolver{}
	}
	return &Recorder{clicks: clicks, geo: geo, logger: logger.Named("recorder")}
}

// Record 记录一次点击。设备/浏览器/系统在落库前由 UA 分类得出；
// 地理位置查询失败只记为未知，不影响事件写入。
func (s *Recorder) Record(ctx context.Context, shortLinkID uint, raw RawClick) (*model.ClickEvent, error) {
	device, browser, os := ClassifyUserAgent(raw.UserAgent)

	event := &model.ClickEvent{
		ShortLinkID: shortLinkID,
		IPAddress:   optional(raw.IPAddress),
		UserAgent:   optional(raw.UserAgent),
		Referer:     optional(raw.Referer),
		Device:      device,
		Browser:     browser,
		OS:          os,
		ClickedAt:   time.Now().UTC(),
	}

	if raw.IPAddress != "" {
		loc, err := s.geo.Lookup(ctx, raw.IPAddress)
		if err != nil {
			s.logger.Debugw("地理位置查询失败，按未知处理", "ip", raw.IPAddress, "error", err)
		} else {
			event.Country = loc.Country
			event.City = loc.City
		}
	}

	if err := s.clicks.Append(ctx, event); err != nil {
		return nil, errors.Persistence("record click", err)
	}
	return event, nil
}

// ClassifyUserAgent 按固定的词元优先级对 UA 分类。
// 设备：mobile 词元先于 tablet 判断（iPad 因此归为 mobile）；
// 浏览器按 Chrome、Firefox、Safari、Edge 顺序；
// 系统按 Windows、Mac、Linux、Android、iPhone/iPad 顺序。
func ClassifyUserAgent(ua string) (device, browser, os string) {
	switch {
	case containsAny(ua, "Mobile", "Android", "iPhone", "iPad"):
		device = "mobile"
	case containsAny(ua, "Tablet", "iPad"):
		device = "tablet"
	default:
		device = "desktop"
	}

	switch {
	case strings.Contains(ua, "Chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "Firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "Safari"):
		browser = "Safari"
	case strings.Contains(ua, "Edge"):
		browser = "Edge"
	default:
		browser = "Other"
	}

	switch {
	case strings.Contains(ua, "Windows"):
		os = "Windows"
	case strings.Contains(ua, "Mac"):
		os = "macOS"
	case strings.Contains(ua, "Linux"):
		os = "Linux"
	case strings.Contains(ua, "Android"):
		os = "Android"
	case containsAny(ua, "iPhone", "iPad"):
		os = "iOS"
	default:
		os = "Other"
	}
	return device, browser, os
}

func containsAny(s string, tokens ...string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}

// optional 空字符串转 nil
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
