// Package cache 容量受限的泛型 LRU 缓存，条目可按写入时间过期
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Config 缓存配置
type Config struct {
	// Name 用于日志
	Name string
	// MaxSize 最大条目数，<= 0 表示不限
	MaxSize int
	// TTL 自写入起的存活时间，0 表示不过期
	TTL time.Duration
	// OnEvict 容量驱逐时回调，在持有锁时调用，不可回调缓存自身
	OnEvict func(key, value any)
}

type entry[K comparable, V any] struct {
	key      K
	value    V
	storedAt time.Time
}

// Cache 并发安全的 LRU 缓存
type Cache[K comparable, V any] struct {
	config Config
	now    func() time.Time

	mu    sync.Mutex
	items map[K]*list.Element
	order *list.List // 最近使用的在前
}

// New 创建缓存
func New[K comparable, V any](config Config) *Cache[K, V] {
	if config.Name == "" {
		config.Name = "unnamed"
	}
	return &Cache[K, V]{
		config: config,
		now:    time.Now,
		items:  make(map[K]*list.Element),
		order:  list.New(),
	}
}

// Name 缓存名称
func (c *Cache[K, V]) Name() string { return c.config.Name }

// Get 命中且未过期时返回值并提升为最近使用
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if c.expired(e) {
		c.remove(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Set 写入或覆盖，超出容量时驱逐最久未使用的条目
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value, e.storedAt = value, c.now()
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, storedAt: c.now()})
	if c.config.MaxSize > 0 && c.order.Len() > c.config.MaxSize {
		oldest := c.order.Back()
		e := oldest.Value.(*entry[K, V])
		c.remove(oldest)
		if c.config.OnEvict != nil {
			c.config.OnEvict(e.key, e.value)
		}
	}
}

// Delete 删除条目，返回是否存在
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if ok {
		c.remove(el)
	}
	return ok
}

// Len 当前条目数（含尚未清理的过期条目）
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache[K, V]) expired(e *entry[K, V]) bool {
	return c.config.TTL > 0 && c.now().Sub(e.storedAt) > c.config.TTL
}

func (c *Cache[K, V]) remove(el *list.Element) {
	delete(c.items, el.Value.(*entry[K, V]).key)
	c.order.Remove(el)
}
