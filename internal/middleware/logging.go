package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoggingMiddleware logs HTTP requests and responses
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		logger.Info("HTTP Request",
			zap.String("method", param.Method),
			zap.String("path", param.Path),
			zap.Int("status", param.StatusCode),
			zap.Duration("latency", param.Latency),
			zap.String("client_ip", param.ClientIP),
			zap.String("user_agent", param.Request.UserAgent()),
			zap.Int("body_size", param.BodySize),
			zap.String("error", param.ErrorMessage),
		)

		return ""
	})
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// DetailedLoggingMiddleware provides detailed request/response logging
func DetailedLoggingMiddleware(logger *zap.Logger, logRequestBody bool, logResponseBody bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		requestID, _ := c.Get("request_id")
		reqID, _ := requestID.(string)

		reqLogger := logger.With(zap.String("request_id", reqID))

		var requestBody []byte
		if logRequestBody && c.Request.Body != nil {
			requestBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		var responseBody *bytes.Buffer
		if logResponseBody {
			responseBody = new(bytes.Buffer)
			c.Writer = &responseBodyWriter{
				ResponseWriter: c.Writer,
				body:           responseBody,
			}
		}

		c.Next()

		latency := time.Since(start)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", raw),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("response_size", c.Writer.Size()),
		}

		if logRequestBody && len(requestBody) > 0 {
			fields = append(fields, zap.String("request_body", string(requestBody)))
		}

		if logResponseBody && responseBody != nil && responseBody.Len() > 0 {
			fields = append(fields, zap.String("response_body", responseBody.String()))
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= 500 {
			reqLogger.Error("HTTP Request - Server Error", fields...)
		} else if c.Writer.Status() >= 400 {
			reqLogger.Warn("HTTP Request - Client Error", fields...)
		} else {
			reqLogger.Info("HTTP Request - Success", fields...)
		}
	}
}

// responseBodyWriter captures response body for logging
type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseBodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production with HTTPS
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// RecoveryMiddleware provides panic recovery with logging
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID, _ := c.Get("request_id")
		reqID, _ := requestID.(string)

		logger.Error("Panic recovered",
			zap.String("request_id", reqID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.Any("error", recovered),
			zap.String("user_agent", c.Request.UserAgent()),
		)

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Internal server error",
			"request_id": reqID,
		})
	})
}

// CORSMiddleware handles cross-origin requests from the booking frontend
func CORSMiddleware(allowedOrigins []string, allowCredentials bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
		}

		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Length, Content-Type, X-Requested-With")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RateLimitInfo stores rate limit information. The request log is shared
// across request goroutines and must only be touched while holding mu.
type RateLimitInfo struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	maxReqs  int
	window   time.Duration
}

// NewRateLimit creates a new rate limiter
func NewRateLimit(maxRequests int, window time.Duration) *RateLimitInfo {
	return &RateLimitInfo{
		requests: make(map[string][]time.Time),
		maxReqs:  maxRequests,
		window:   window,
	}
}

// RateLimitMiddleware implements basic per-IP rate limiting for the
// public intake and offer endpoints.
func RateLimitMiddleware(rateLimiter *RateLimitInfo, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		now := time.Now()

		rateLimiter.mu.Lock()

		var validRequests []time.Time
		for _, reqTime := range rateLimiter.requests[clientIP] {
			if now.Sub(reqTime) < rateLimiter.window {
				validRequests = append(validRequests, reqTime)
			}
		}

		if len(validRequests) >= rateLimiter.maxReqs {
			rateLimiter.requests[clientIP] = validRequests
			rateLimiter.mu.Unlock()

			logger.Warn("Rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.Int("requests", len(validRequests)),
				zap.Int("max_requests", rateLimiter.maxReqs),
				zap.Duration("window", rateLimiter.window),
			)

			c.Header("X-RateLimit-Limit", strconv.Itoa(rateLimiter.maxReqs))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(now.Add(rateLimiter.window).Unix(), 10))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
				"code":  "RATE_LIMIT_EXCEEDED",
			})
			c.Abort()
			return
		}

		validRequests = append(validRequests, now)
		rateLimiter.requests[clientIP] = validRequests
		remaining := rateLimiter.maxReqs - len(validRequests)

		rateLimiter.mu.Unlock()

		c.Header("X-RateLimit-Limit", strconv.Itoa(rateLimiter.maxReqs))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(now.Add(rateLimiter.window).Unix(), 10))

		c.Next()
	}
}
