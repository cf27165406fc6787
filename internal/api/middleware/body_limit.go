package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leonard05717/appointment/pkg/response"
)

// BodyLimit 请求体大小上限。声明的 Content-Length 超限时直接拒绝；
// 分块上传在读取时由 MaxBytesReader 截断
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.TooLarge(c)
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		for _, e := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(e.Err, &tooLarge) {
				response.TooLarge(c)
				return
			}
		}
	}
}
