package service

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"shortlink-platform/internal/model"
)

const (
	// cacheKeyPrefix 重定向缓存的键前缀
	cacheKeyPrefix = "shortlink:"
	// cacheTTL 缓存有效期
	cacheTTL = 24 * time.Hour
	// recordTimeout 单条点击落库的超时
	recordTimeout = 5 * time.Second
)

// cachedLink 缓存中的链接摘要，记录点击需要 ID，缓存命中时不能只存 URL。
// ExpiresAt 一并缓存：过期判定不能只依赖数据库路径
type cachedLink struct {
	ID          uint       `json:"id"`
	OriginalURL string     `json:"original_url"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// clickJob 投递给后台 worker 的点击任务
type clickJob struct {
	shortLinkID uint
	raw         RawClick
}

// Dispatcher 重定向分发器：解析短码并异步提交点击事件。
// 点击写入绝不阻塞重定向响应——队列满时直接丢弃并记日志。
type Dispatcher struct {
	registry *Registry
	recorder *Recorder
	redis    *redis.Client
	logger   *zap.SugaredLogger

	jobs chan clickJob
	wg   sync.WaitGroup
}

// NewDispatcher 创建 Dispatcher，queueSize 为点击队列容量，redisClient 可为 nil
func NewDispatcher(registry *Registry, recorder *Recorder, redisClient *redis.Client, queueSize int, logger *zap.SugaredLogger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Dispatcher{
		registry: registry,
		recorder: recorder,
		redis:    redisClient,
		logger:   logger.Named("dispatcher"),
		jobs:     make(chan clickJob, queueSize),
	}
}

// Start 启动点击事件的后台 worker 池
func (d *Dispatcher) Start(workers int) {
	if workers <= 0 {
		workers = 4
	}
	d.logger.Infof("启动 %d 个点击事件 worker...", workers)
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Stop 关闭队列并等待存量任务写完
func (d *Dispatcher) Stop() {
	close(d.jobs)
	d.wg.Wait()
	d.logger.Info("点击事件 worker 已全部退出")
}

// ResolveAndRedirect 解析短码并返回目标链接，由调用方发出 HTTP 重定向。
// 成功时异步提交点击事件；对 Registry 无副作用，可安全重试。
func (d *Dispatcher) ResolveAndRedirect(ctx context.Context, code string, raw RawClick) (*model.ShortLink, error) {
	if cached := d.fromCache(ctx, code); cached != nil {
		d.submit(cached.ID, raw)
		return &model.ShortLink{ID: cached.ID, ShortCode: code, OriginalURL: cached.OriginalURL, IsActive: true}, nil
	}

	link, err := d.registry.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	d.toCache(ctx, code, link)
	d.submit(link.ID, raw)
	return link, nil
}

// InvalidateCache 在链接被修改或删除后清除缓存
func (d *Dispatcher) InvalidateCache(ctx context.Context, codes ...string) {
	if d.redis == nil {
		return
	}
	keys := make([]string, 0, len(codes))
	for _, code := range codes {
		keys = append(keys, cacheKeyPrefix+code)
	}
	if err := d.redis.Del(ctx, keys...).Err(); err != nil {
		d.logger.Warnw("清除重定向缓存失败", "codes", codes, "error", err)
	}
}

// submit 非阻塞投递点击任务，队列满时丢弃
func (d *Dispatcher) submit(shortLinkID uint, raw RawClick) {
	select {
	case d.jobs <- clickJob{shortLinkID: shortLinkID, raw: raw}:
	default:
		d.logger.Warnw("点击队列已满，丢弃事件", "short_link_id", shortLinkID)
	}
}

// worker 持续消费点击任务；写入失败只记日志，不向访问者传播
func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if _, err := d.recorder.Record(ctx, job.shortLinkID, job.raw); err != nil {
			d.logger.Errorw("点击事件写入失败", "short_link_id", job.shortLinkID, "error", err)
		}
		cancel()
	}
}

func (d *Dispatcher) fromCache(ctx context.Context, code string) *cachedLink {
	if d.redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	val, err := d.redis.Get(ctx, cacheKeyPrefix+code).Result()
	if err != nil {
		return nil
	}
	var cached cachedLink
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil
	}
	// 过期的缓存条目按未命中处理，走数据库路径返回 NotFound
	if cached.ExpiresAt != nil && !cached.ExpiresAt.After(time.Now().UTC()) {
		d.redis.Del(ctx, cacheKeyPrefix+code)
		return nil
	}
	return &cached
}

func (d *Dispatcher) toCache(ctx context.Context, code string, link *model.ShortLink) {
	if d.redis == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	// 带过期时间的链接，缓存存活期不能越过 expires_at
	ttl := cacheTTL
	if link.ExpiresAt != nil {
		remaining := time.Until(*link.ExpiresAt)
		if remaining <= 0 {
			return
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	payload, err := json.Marshal(cachedLink{ID: link.ID, OriginalURL: link.OriginalURL, ExpiresAt: link.ExpiresAt})
	if err != nil {
		return
	}
	d.redis.Set(ctx, cacheKeyPrefix+code, payload, ttl)
}
