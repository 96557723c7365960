package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLocalCache(t *testing.T) {
	c := NewLocalCache(time.Minute, 0)
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }

	t.Run("读取未命中", func(t *testing.T) {
		_, ok := c.Get("missing")
		assert.False(t, ok)
	})

	t.Run("默认过期时间", func(t *testing.T) {
		c.Set("domain", "punkproof.com", 0)

		v, ok := c.Get("domain")
		assert.True(t, ok)
		assert.Equal(t, "punkproof.com", v)

		now = now.Add(2 * time.Minute)
		_, ok = c.Get("domain")
		assert.False(t, ok)
	})

	t.Run("自定义过期时间与清理", func(t *testing.T) {
		c.Set("a", 1, time.Second)
		c.Set("b", 2, time.Hour)

		now = now.Add(10 * time.Second)
		c.purgeExpired()

		_, ok := c.Get("a")
		assert.False(t, ok)
		v, ok := c.Get("b")
		assert.True(t, ok)
		assert.Equal(t, 2, v)
	})

	t.Run("删除", func(t *testing.T) {
		c.Set("gone", true, 0)
		c.Delete("gone")
		_, ok := c.Get("gone")
		assert.False(t, ok)
	})
}

func TestLocalCacheCloseIsIdempotent(t *testing.T) {
	c := NewLocalCache(time.Minute, 10*time.Millisecond)
	c.Close()
	c.Close()
}

func TestLocalCacheWithoutDefaultTTL(t *testing.T) {
	c := NewLocalCache(0, 0)
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("forever", "v", 0)
	c.Set("short", "v", time.Second)

	now = now.Add(24 * time.Hour)
	c.purgeExpired()

	v, ok := c.Get("forever")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	_, ok = c.Get("short")
	assert.False(t, ok)
}
