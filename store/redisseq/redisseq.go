// Package redisseq 用 Redis INCR 实现 Serial 策略的表级序列
package redisseq

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"udtkit/errors"
	"udtkit/field"
	"udtkit/logging"
	"udtkit/store"
)

// DefaultPrefix 序列键前缀
const DefaultPrefix = "udt:seq:"

// Client go-redis 客户端中用到的子集，*redis.Client 与 *redis.ClusterClient 都满足
type Client interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd
}

// Seeder 返回表中已有的最大序号，首次分配时据此抬高计数器
type Seeder func(ctx context.Context, table string) (int64, error)

// Repository 序列走 Redis，下拉数据委托给 lookups
type Repository struct {
	client  Client
	lookups store.Repository
	prefix  string
	seed    Seeder
	logger  logging.Logger
}

// Option 仓库选项
type Option func(*Repository)

// WithPrefix 替换键前缀
func WithPrefix(prefix string) Option {
	return func(r *Repository) { r.prefix = prefix }
}

// WithSeeder 指定首次分配时的起点来源
func WithSeeder(s Seeder) Option {
	return func(r *Repository) { r.seed = s }
}

// WithLogger 指定日志
func WithLogger(l logging.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// New 创建仓库；lookups 为 nil 时 LookupValues 返回空
func New(client Client, lookups store.Repository, opts ...Option) *Repository {
	r := &Repository{client: client, lookups: lookups, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrGlobal(r.logger)
	return r
}

var _ store.Repository = (*Repository)(nil)

// Key 表对应的计数器键
func (r *Repository) Key(table string) string {
	return r.prefix + table
}

// NextSequenceValue INCR 计数器；计数器刚创建且配置了 Seeder 时跳过已有序号
func (r *Repository) NextSequenceValue(ctx context.Context, table string) (string, error) {
	key := r.Key(table)
	v, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return "", errors.WrapError(err, errors.ErrCodeSequence, "redis incr failed: "+key)
	}

	if v == 1 && r.seed != nil {
		floor, err := r.seed(ctx, table)
		if err != nil {
			return "", errors.WrapError(err, errors.ErrCodeSequence, "sequence seed failed: "+table)
		}
		if floor > 0 {
			if v, err = r.client.IncrBy(ctx, key, floor).Result(); err != nil {
				return "", errors.WrapError(err, errors.ErrCodeSequence, "redis incrby failed: "+key)
			}
			r.logger.Info(ctx, "sequence seeded", logging.Table(table), logging.Int64("floor", floor))
		}
	}
	return strconv.FormatInt(v, 10), nil
}

// LookupValues 委托给下拉数据来源
func (r *Repository) LookupValues(ctx context.Context, table string) ([]field.ValidValue, error) {
	if r.lookups == nil {
		return nil, nil
	}
	return r.lookups.LookupValues(ctx, table)
}
