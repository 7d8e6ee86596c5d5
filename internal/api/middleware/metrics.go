package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"campus-timetable/backend/pkg/metrics"
)

// Metrics 记录每个请求的路由、状态码与耗时。
// 未匹配路由统一记为 "unmatched"，避免标签基数膨胀。
func Metrics(rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.HTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
