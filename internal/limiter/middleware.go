// Package limiter 限流中间件实现
package limiter

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/resp"
)

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	// 限流器
	Limiter Limiter

	// Key生成函数
	KeyGenerator func(*gin.Context) string

	// 错误处理函数
	ErrorHandler func(*gin.Context, error)

	// 限流回调函数
	OnLimitReached func(*gin.Context, *LimitResult)

	// 是否跳过限流检查
	Skip func(*gin.Context) bool
}

// DefaultKeyGenerator 默认Key生成器（基于IP）
func DefaultKeyGenerator(c *gin.Context) string {
	return fmt.Sprintf("global:%s", c.ClientIP())
}

// PathKeyGenerator 基于IP与接口路径的Key生成器，写接口按端点独立计额。
func PathKeyGenerator(c *gin.Context) string {
	return fmt.Sprintf("path:%s:%s:%s", c.ClientIP(), c.Request.Method, c.FullPath())
}

// RateLimitMiddleware 创建限流中间件
func RateLimitMiddleware(config *MiddlewareConfig) gin.HandlerFunc {
	if config.KeyGenerator == nil {
		config.KeyGenerator = DefaultKeyGenerator
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = defaultErrorHandler
	}
	if config.OnLimitReached == nil {
		config.OnLimitReached = defaultOnLimitReached
	}

	return func(c *gin.Context) {
		if config.Skip != nil && config.Skip(c) {
			c.Next()
			return
		}

		key := config.KeyGenerator(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		result, err := config.Limiter.Allow(ctx, key)
		if err != nil {
			config.ErrorHandler(c, err)
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			config.OnLimitReached(c, result)
			c.Abort()
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders 设置限流相关的响应头
func setRateLimitHeaders(c *gin.Context, result *LimitResult) {
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
	if result.RetryAfter > 0 {
		c.Header("Retry-After", strconv.FormatInt(int64(result.RetryAfter.Seconds()), 10))
	}
}

// defaultErrorHandler 默认错误处理器
func defaultErrorHandler(c *gin.Context, err error) {
	requestID := c.GetString("request_id")
	traceID := c.GetString("trace_id")
	resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError, "限流服务异常", requestID, traceID)
	c.Abort()
}

// defaultOnLimitReached 默认限流回调
func defaultOnLimitReached(c *gin.Context, result *LimitResult) {
	requestID := c.GetString("request_id")
	traceID := c.GetString("trace_id")
	resp.Error(c.Writer, http.StatusTooManyRequests, resp.CodeInvalidParam,
		"请求过于频繁，请稍后重试", requestID, traceID)
}

// WriteRateLimitMiddleware 库存写接口限流中间件，按客户端与端点计额。
func WriteRateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return RateLimitMiddleware(&MiddlewareConfig{
		Limiter:      limiter,
		KeyGenerator: PathKeyGenerator,
	})
}

// GlobalRateLimitMiddleware 全局限流中间件
func GlobalRateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return RateLimitMiddleware(&MiddlewareConfig{
		Limiter:      limiter,
		KeyGenerator: DefaultKeyGenerator,
	})
}
