package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bitandsolution/stadium-hospitality-manager/config"
	pkgerrors "github.com/bitandsolution/stadium-hospitality-manager/pkg/errors"
)

// Client Redis 客户端封装
// 用于 Token 黑名单、账号吊销、登录限流、后台任务分布式锁与导入进度
// 所有方法对 nil 接收者安全：Redis 不可用时按“未命中 / 放行”降级
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if c == nil || ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if c == nil {
		return false, nil
	}
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 账号吊销 ──

const revokedPrefix = "profile:revoked:"

// RevokeUser 吊销用户在 ttl 内签发的全部 Token（删除账号时调用，ttl 取 Access Token 有效期）
func (c *Client) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if c == nil || ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, revokedPrefix+userID, strconv.FormatInt(time.Now().Unix(), 10), ttl).Err()
}

// IsUserRevoked 检查用户是否已被吊销
func (c *Client) IsUserRevoked(ctx context.Context, userID string) (bool, error) {
	if c == nil {
		return false, nil
	}
	n, err := c.rdb.Exists(ctx, revokedPrefix+userID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 滑动窗口限流 ──

// CheckRateLimit 判断 key 在 window 内的请求数是否未超过 limit（有序集合实现的滑动窗口）
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if c == nil {
		return true, nil
	}

	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()[:8]
	windowStart := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	var card *goredis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "0", windowStart)
		pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: member})
		card = pipe.ZCard(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return false, err
	}

	return card.Val() <= int64(limit), nil
}

// ── 分布式锁 ──

// releaseScript 仅当锁仍由当前持有者持有时才删除
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock 已获取的分布式锁
type Lock struct {
	client *Client
	key    string
	token  string
}

// AcquireLock 尝试获取锁（SET NX PX），已被占用时返回 ErrLockNotAcquired
// c 为 nil 时返回空锁，调用方照常执行（单实例部署）
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	if c == nil {
		return &Lock{}, nil
	}

	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, "lock:"+key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.ErrLockNotAcquired
	}
	return &Lock{client: c, key: "lock:" + key, token: token}, nil
}

// Release 释放锁
func (l *Lock) Release(ctx context.Context) error {
	if l == nil || l.client == nil {
		return nil
	}
	return releaseScript.Run(ctx, l.client.rdb, []string{l.key}, l.token).Err()
}

// MarkOnce 设置一次性标记，首次设置返回 true（用于“每天只执行一次”的任务）
func (c *Client) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if c == nil {
		return true, nil
	}
	return c.rdb.SetNX(ctx, "once:"+key, "1", ttl).Result()
}

// ── 导入进度 ──

const importProgressPrefix = "import:progress:"

// ImportProgressTTL 导入进度保留时长
const ImportProgressTTL = 10 * time.Minute

// SetImportProgress 写入导入进度（0-100）
func (c *Client) SetImportProgress(ctx context.Context, importID string, percent int) error {
	if c == nil {
		return nil
	}
	return c.rdb.Set(ctx, importProgressPrefix+importID, percent, ImportProgressTTL).Err()
}

// GetImportProgress 读取导入进度，不存在时 found=false
func (c *Client) GetImportProgress(ctx context.Context, importID string) (percent int, found bool, err error) {
	if c == nil {
		return 0, false, nil
	}
	percent, err = c.rdb.Get(ctx, importProgressPrefix+importID).Int()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return percent, true, nil
}

// Ping 健康检查
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("redis 未配置")
	}
	return c.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
