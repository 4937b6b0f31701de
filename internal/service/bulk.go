package service

import (
	"context"
)

// BulkItem 批量缩短的单条输入
type BulkItem struct {
	OriginalURL string
	CustomAlias *string
}

// BulkResult 批量缩短的单条结果：成功时填充 ID/ShortCode，失败时填充 Err。
// 结果顺序与输入一一对应。
type BulkResult struct {
	OriginalURL string
	ID          uint
	ShortCode   string
	Err         error
}

// ShortenBulk 逐条创建短链接，单条失败不影响其余条目，永远不会整体失败
func (s *Registry) ShortenBulk(ctx context.Context, items []BulkItem, ownerID *string) []BulkResult {
	results := make([]BulkResult, 0, len(items))
	for _, item := range items {
		result := BulkResult{OriginalURL: item.OriginalURL}
		link, err := s.Create(ctx, item.OriginalURL, item.CustomAlias, ownerID)
		if err != nil {
			result.Err = err
		} else {
			result.ID = link.ID
			result.ShortCode = link.ShortCode
		}
		results = append(results, result)
	}
	return results
}
