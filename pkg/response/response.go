package response

import (
	"github.com/gin-gonic/gin"
)

// Error 错误响应
// 对外统一为 {"error": "..."} 扁平结构，与扫码/注册前端的约定保持一致
func Error(c *gin.Context, httpCode int, msg string) {
	c.JSON(httpCode, gin.H{"error": msg})
}

// ErrorWithFields 错误响应，附带额外字段 (例如已使用码的 used_at)
func ErrorWithFields(c *gin.Context, httpCode int, msg string, fields gin.H) {
	body := gin.H{"error": msg}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(httpCode, body)
}
