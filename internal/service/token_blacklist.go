package service

import (
	"context"
	"sync"
	"time"
)

// memoryBlacklist 未配置 Redis 时的进程内黑名单，过期条目在写入时清理
type memoryBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryBlacklist 单实例部署使用
func NewMemoryBlacklist(now func() time.Time) TokenBlacklist {
	if now == nil {
		now = time.Now
	}
	return &memoryBlacklist{entries: make(map[string]time.Time), now: now}
}

func (b *memoryBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, exp := range b.entries {
		if !now.Before(exp) {
			delete(b.entries, k)
		}
	}
	b.entries[jti] = now.Add(ttl)
	return nil
}

func (b *memoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.entries[jti]
	if !ok {
		return false, nil
	}
	return b.now().Before(exp), nil
}
