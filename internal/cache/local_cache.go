package cache

import (
	"sync"
	"time"
)

// LocalCache 本地内存缓存
//
// 特点：
// - 使用 sync.Map 实现无锁读取
// - 支持 TTL 过期
// - 后台协程定期清理过期条目，Close 后停止
type LocalCache struct {
	data     sync.Map
	ttl      time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time // 零值表示永不过期
}

func (e *cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewLocalCache 创建本地缓存
//
// 参数:
//   - ttl: 默认过期时间，<=0 表示永不过期
//   - cleanupInterval: 清理周期，<=0 时不启动后台清理
func NewLocalCache(ttl, cleanupInterval time.Duration) *LocalCache {
	c := &LocalCache{
		ttl:  ttl,
		now:  time.Now,
		stop: make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go c.cleanupLoop(cleanupInterval)
	}

	return c
}

// Get 获取缓存值
func (c *LocalCache) Get(key string) (interface{}, bool) {
	val, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}

	entry := val.(*cacheEntry)
	if entry.expired(c.now()) {
		c.data.CompareAndDelete(key, val)
		return nil, false
	}

	return entry.value, true
}

// Set 设置缓存值，ttl <= 0 时使用默认过期时间；默认值也 <= 0 时永不过期
func (c *LocalCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	entry := &cacheEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.data.Store(key, entry)
}

// Delete 删除缓存值
func (c *LocalCache) Delete(key string) {
	c.data.Delete(key)
}

// Close 停止后台清理
func (c *LocalCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// cleanupLoop 定期清理过期条目
func (c *LocalCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.purgeExpired()
		}
	}
}

func (c *LocalCache) purgeExpired() {
	now := c.now()
	c.data.Range(func(key, value interface{}) bool {
		if value.(*cacheEntry).expired(now) {
			c.data.CompareAndDelete(key, value)
		}
		return true
	})
}
