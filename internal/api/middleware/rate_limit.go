package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/leonard05717/appointment/pkg/response"
)

// WindowLimiter 固定窗口计数（Redis 实现）
type WindowLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 速率限制中间件，按客户端 IP 与路由计数
// limit: 窗口内允许的最大请求数
// window: 窗口时长
// store 为 nil 或 Redis 出错时使用进程内令牌桶
func RateLimit(store WindowLimiter, limit int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter(limit, window)

	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())

		allowed := true
		if store != nil {
			ok, err := store.CheckRateLimit(c.Request.Context(), key, limit, window)
			if err != nil {
				allowed = local.allow(key)
			} else {
				allowed = ok
			}
		} else {
			allowed = local.allow(key)
		}

		if !allowed {
			response.TooManyRequests(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

// ── 进程内令牌桶 ──

const localLimiterIdle = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter 每个 key 一个令牌桶，长期未访问的 key 在访问时顺带清理
type localLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	lastGC   time.Time
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &localLimiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(limit)),
		burst:    limit,
		lastGC:   time.Now(),
	}
}

func (l *localLimiter) allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > localLimiterIdle {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > localLimiterIdle {
				delete(l.visitors, k)
			}
		}
		l.lastGC = now
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}
