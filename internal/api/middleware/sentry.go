package middleware

import (
	"fmt"
	"strconv"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryScope 把当前用户与请求 ID 附加到 sentrygin 创建的 Hub 上；
// 未启用 Sentry 时 GetHubFromContext 返回 nil，直接放行
func SentryScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		hub := sentrygin.GetHubFromContext(c)
		if hub == nil {
			c.Next()
			return
		}

		hub.ConfigureScope(func(scope *sentry.Scope) {
			if rid := GetRequestID(c); rid != "" {
				scope.SetTag("request_id", rid)
			}
		})

		c.Next()

		if uid, ok := c.Get("user_id"); ok {
			hub.Scope().SetUser(sentry.User{ID: toString(uid)})
		}
		if status := c.Writer.Status(); status >= 500 {
			if len(c.Errors) > 0 {
				hub.CaptureException(c.Errors.Last().Err)
			} else {
				hub.CaptureMessage(fmt.Sprintf("%s %s -> %d", c.Request.Method, c.FullPath(), status))
			}
		}
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case string:
		return x
	}
	return ""
}
