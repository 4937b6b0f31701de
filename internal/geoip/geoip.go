// Package geoip 封装外部 IP 地理位置查询服务。
// 查询是尽力而为的：任何失败都只表现为"未知"，不会向上传播错误。
package geoip

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// Location 查询结果，字段为 nil 表示未知
type Location struct {
	Country *string
	City    *string
}

// Resolver 地理位置查询端口
type Resolver interface {
	Lookup(ctx context.Context, ip string) (Location, error)
}

// HTTPResolver 调用 ip-api 风格的 HTTP 接口：GET {endpoint}/{ip} 返回
// {"country": "...", "city": "..."}
type HTTPResolver struct {
	endpoint string
	client   *http.Client
}

// NewHTTPResolver 创建 HTTPResolver，timeout 限制单次查询耗时
func NewHTTPResolver(endpoint string, timeout time.Duration) *HTTPResolver {
	return &HTTPResolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Lookup 查询 IP 归属地
func (r *HTTPResolver) Lookup(ctx context.Context, ip string) (Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"/"+url.PathEscape(ip), nil)
	if err != nil {
		return Location{}, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geoip lookup: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Country string `json:"country"`
		City    string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, err
	}

	var loc Location
	if body.Country != "" {
		loc.Country = &body.Country
	}
	if body.City != "" {
		loc.City = &body.City
	}
	return loc, nil
}

// NoopResolver 占位实现，查询一律返回未知（geoip 未配置时使用）
type NoopResolver struct{}

// Lookup 恒返回空 Location
func (NoopResolver) Lookup(ctx context.Context, ip string) (Location, error) {
	return Location{}, nil
}
