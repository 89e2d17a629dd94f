package utils_test

import (
	"sync"
	"testing"
	"time"

	"civic-karma-system/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache_SetGetDelete(t *testing.T) {
	cache := utils.NewTTLCache(time.Minute)

	_, _, ok := cache.Get("missing")
	assert.False(t, ok)

	cache.Set("k", 42)
	value, age, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, value)
	assert.GreaterOrEqual(t, age, time.Duration(0))
	assert.Less(t, age, time.Minute)

	cache.Delete("k")
	_, _, ok = cache.Get("k")
	assert.False(t, ok)
}

func TestTTLCache_EntriesExpire(t *testing.T) {
	cache := utils.NewTTLCache(20 * time.Millisecond)
	cache.Set("k", "v")

	_, _, ok := cache.Get("k")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, _, ok = cache.Get("k")
	assert.False(t, ok, "entry past its TTL reads as a miss")
}

func TestTTLCache_SetResetsExpiry(t *testing.T) {
	cache := utils.NewTTLCache(40 * time.Millisecond)
	cache.Set("k", 1)

	time.Sleep(25 * time.Millisecond)
	cache.Set("k", 2)

	time.Sleep(25 * time.Millisecond)
	value, _, ok := cache.Get("k")
	require.True(t, ok, "rewrite restarts the clock")
	assert.Equal(t, 2, value)
}

func TestTTLCache_Purge(t *testing.T) {
	cache := utils.NewTTLCache(time.Minute)
	cache.Set("a", 1)
	cache.Set("b", 2)

	cache.Purge()

	_, _, ok := cache.Get("a")
	assert.False(t, ok)
	_, _, ok = cache.Get("b")
	assert.False(t, ok)
}

func TestTTLCache_ConcurrentAccess(t *testing.T) {
	cache := utils.NewTTLCache(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Set("shared", i)
				cache.Get("shared")
				if j%10 == 0 {
					cache.Delete("shared")
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, time.Minute, cache.TTL())
}
