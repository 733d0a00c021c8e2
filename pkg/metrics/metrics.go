package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests 按路径/方法/状态码计数
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"path", "method", "status"})

	// HTTPDuration 请求耗时分布
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method"})

	// Registrations 注册结果计数
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discount_registrations_total",
		Help: "Discount registrations by outcome",
	}, []string{"outcome"})

	// Redemptions 核销结果计数
	Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discount_redemptions_total",
		Help: "Code redemptions by outcome",
	}, []string{"outcome"})

	// OTPDeliveries 验证码投递结果计数
	OTPDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_deliveries_total",
		Help: "OTP delivery attempts by channel and outcome",
	}, []string{"channel", "outcome"})
)

// Middleware 请求计数与耗时采集
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequests.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler 暴露 /metrics
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
