// Package errors 定义核心业务的错误分类，处理器据此映射 HTTP 状态码。
package errors

import (
	"errors"
	"fmt"
)

// ErrInvalidURL 原始 URL 不是合法的绝对 URL
var ErrInvalidURL = errors.New("invalid URL format")

// ErrInvalidAlias 自定义别名长度不在 1-50 之间
var ErrInvalidAlias = errors.New("invalid custom alias")

// ErrAliasTaken 别名或短码已被占用（包括软删除链接永久保留的值）
var ErrAliasTaken = errors.New("custom alias is already taken")

// ErrAllocationExhausted 在尝试上限内未能分配出唯一短码
var ErrAllocationExhausted = errors.New("failed to allocate unique short code")

// ErrLinkNotFound 短码不存在、链接已禁用或已过期
var ErrLinkNotFound = errors.New("short link not found")

// ErrForbidden 请求者不是链接的所有者
var ErrForbidden = errors.New("not the owner of this link")

// ErrPersistence 持久层不可达或约束竞争重试后仍失败
var ErrPersistence = errors.New("persistence unavailable")

// Persistence 将底层存储错误包装为 ErrPersistence，保留原始错误链
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}
