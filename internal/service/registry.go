// Package service 实现短链接平台的核心业务：短码分配、重定向分发、
// 点击记录与统计聚合。所有组件通过 repository 接口访问持久层。
package service

import (
	"context"
	stderrors "errors"
	"net/url"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shortlink-platform/internal/errors"
	"shortlink-platform/internal/model"
	"shortlink-platform/internal/repository"
	"shortlink-platform/internal/shortcode"
)

// MaxAllocationAttempts 分配短码的尝试上限，超出后返回 ErrAllocationExhausted
const MaxAllocationAttempts = 20

// Requester 请求者身份，由认证中间件从令牌中解出
type Requester struct {
	UserID string
	Role   string
}

// IsAdmin 管理员可以操作匿名链接
func (r Requester) IsAdmin() bool {
	return r.Role == "admin"
}

// Registry 短链接注册表：负责短码分配、查找和生命周期管理
type Registry struct {
	links    repository.LinkRepository
	generate func() (string, error)
	logger   *zap.SugaredLogger
}

// NewRegistry 创建 Registry 实例，默认使用 shortcode.Generate 作为随机源
func NewRegistry(links repository.LinkRepository, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		links:    links,
		generate: shortcode.Generate,
		logger:   logger.Named("registry"),
	}
}

// WithGenerator 替换短码生成函数（测试中用于缩小码空间制造碰撞）
func (s *Registry) WithGenerator(generate func() (string, error)) *Registry {
	s.generate = generate
	return s
}

// Create 创建短链接。
// 给定别名时别名即短码，占用检查失败返回 ErrAliasTaken；
// 未给别名时走 生成→查重→插入 的重试循环，插入撞唯一索引同样视为碰撞。
func (s *Registry) Create(ctx context.Context, originalURL string, customAlias, ownerID *string) (*model.ShortLink, error) {
	if !validAbsoluteURL(originalURL) {
		return nil, errors.ErrInvalidURL
	}

	if customAlias != nil {
		return s.createWithAlias(ctx, originalURL, *customAlias, ownerID)
	}
	return s.createGenerated(ctx, originalURL, ownerID)
}

func (s *Registry) createWithAlias(ctx context.Context, originalURL, alias string, ownerID *string) (*model.ShortLink, error) {
	if len(alias) < 1 || len(alias) > 50 {
		return nil, errors.ErrInvalidAlias
	}

	// 与生成路径一致：持久层超时最多在内部重试一次
	retriedTimeout := false
	for {
		taken, err := s.links.InUse(ctx, alias, 0)
		if err != nil {
			if stderrors.Is(err, context.DeadlineExceeded) && !retriedTimeout {
				retriedTimeout = true
				continue
			}
			return nil, errors.Persistence("check alias", err)
		}
		if taken {
			return nil, errors.ErrAliasTaken
		}

		link := &model.ShortLink{
			ShortCode:   alias,
			CustomAlias: &alias,
			OriginalURL: originalURL,
			OwnerID:     ownerID,
			IsActive:    true,
		}
		if err := s.links.Create(ctx, link); err != nil {
			// 预检查之后别名可能被并发请求抢注，唯一索引是最终裁判
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, errors.ErrAliasTaken
			}
			if stderrors.Is(err, context.DeadlineExceeded) && !retriedTimeout {
				retriedTimeout = true
				continue
			}
			return nil, errors.Persistence("create link", err)
		}
		return link, nil
	}
}

func (s *Registry) createGenerated(ctx context.Context, originalURL string, ownerID *string) (*model.ShortLink, error) {
	retriedTimeout := false

	for attempt := 1; attempt <= MaxAllocationAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, err
		}

		taken, err := s.links.InUse(ctx, code, 0)
		if err != nil {
			// 创建路径本身就是重试循环，超时在这里最多额外重试一次
			if stderrors.Is(err, context.DeadlineExceeded) && !retriedTimeout {
				retriedTimeout = true
				continue
			}
			return nil, errors.Persistence("check code", err)
		}
		if taken {
			s.logger.Debugw("短码碰撞，重新生成", "code", code, "attempt", attempt)
			continue
		}

		link := &model.ShortLink{
			ShortCode:   code,
			OriginalURL: originalURL,
			OwnerID:     ownerID,
			IsActive:    true,
		}
		if err := s.links.Create(ctx, link); err != nil {
			if stderrors.Is(err, gorm.ErrDuplicatedKey) {
				// 预检查和插入之间输掉了竞争，继续下一轮
				s.logger.Debugw("短码插入碰撞，重新生成", "code", code, "attempt", attempt)
				continue
			}
			if stderrors.Is(err, context.DeadlineExceeded) && !retriedTimeout {
				retriedTimeout = true
				continue
			}
			return nil, errors.Persistence("create link", err)
		}
		return link, nil
	}

	s.logger.Warnw("短码分配耗尽尝试次数", "attempts", MaxAllocationAttempts)
	return nil, errors.ErrAllocationExhausted
}

// Resolve 按短码或别名查找活跃链接，未找到、已禁用或已过期均返回 ErrLinkNotFound
func (s *Registry) Resolve(ctx context.Context, code string) (*model.ShortLink, error) {
	link, err := s.links.FindActiveByCode(ctx, code, time.Now().UTC())
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrLinkNotFound
		}
		return nil, errors.Persistence("resolve link", err)
	}
	return link, nil
}

// AliasAvailable 检查别名是否可用（任何链接占用过即不可用，含软删除）
func (s *Registry) AliasAvailable(ctx context.Context, alias string) (bool, error) {
	taken, err := s.links.InUse(ctx, alias, 0)
	if err != nil {
		return false, errors.Persistence("check alias", err)
	}
	return !taken, nil
}

// ListByOwner 返回某用户的活跃链接，按创建时间倒序
func (s *Registry) ListByOwner(ctx context.Context, ownerID string) ([]model.ShortLink, error) {
	links, err := s.links.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.Persistence("list links", err)
	}
	return links, nil
}

// Update 更新链接的自定义别名，alias 为 nil 表示清除。
// 必须先通过所有权校验；可用性检查排除记录自身当前持有的值。
func (s *Registry) Update(ctx context.Context, id uint, requester Requester, alias *string) (*model.ShortLink, error) {
	link, err := s.authorize(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	if alias != nil {
		if len(*alias) < 1 || len(*alias) > 50 {
			return nil, errors.ErrInvalidAlias
		}
		taken, err := s.links.InUse(ctx, *alias, id)
		if err != nil {
			return nil, errors.Persistence("check alias", err)
		}
		if taken {
			return nil, errors.ErrAliasTaken
		}
	}

	if err := s.links.UpdateAlias(ctx, id, alias); err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.ErrAliasTaken
		}
		return nil, errors.Persistence("update link", err)
	}
	link.CustomAlias = alias
	return link, nil
}

// SoftDelete 软删除链接（置 is_active=false），幂等；点击历史保留
func (s *Registry) SoftDelete(ctx context.Context, id uint, requester Requester) error {
	if _, err := s.authorize(ctx, id, requester); err != nil {
		return err
	}
	if err := s.links.Deactivate(ctx, id); err != nil {
		return errors.Persistence("delete link", err)
	}
	return nil
}

// GetOwned 加载链接并校验请求者的所有权，统计接口在聚合前调用
func (s *Registry) GetOwned(ctx context.Context, id uint, requester Requester) (*model.ShortLink, error) {
	return s.authorize(ctx, id, requester)
}

// authorize 校验请求者对链接的操作权限：
// 必须是链接所有者；匿名链接只有管理员能改
func (s *Registry) authorize(ctx context.Context, id uint, requester Requester) (*model.ShortLink, error) {
	link, err := s.links.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrLinkNotFound
		}
		return nil, errors.Persistence("load link", err)
	}

	if link.OwnerID == nil {
		if !requester.IsAdmin() {
			return nil, errors.ErrForbidden
		}
		return link, nil
	}
	if *link.OwnerID != requester.UserID && !requester.IsAdmin() {
		return nil, errors.ErrForbidden
	}
	return link, nil
}

// validAbsoluteURL 要求 URL 可解析且带有 scheme 和 host
func validAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}
