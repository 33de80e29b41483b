package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bukulele/beontrack-portal-sub001/pkg/redis"
	"github.com/bukulele/beontrack-portal-sub001/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的写操作限流中间件
// 按客户端 IP + 路由模板计数，防止看板前端重复提交上下班、派车等操作
// rdb 为 nil（Redis 未启用）或 limit <= 0 时放行
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("fleet:rate_limit:%s:%s:%s", c.ClientIP(), c.Request.Method, c.FullPath())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			// Redis 出错时降级放行
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, 10004, "操作过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
