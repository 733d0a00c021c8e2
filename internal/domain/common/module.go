package common

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"suzu_discount/internal/pkg/registry"
	"suzu_discount/pkg/metrics"
)

// CommonModule 通用功能模块: 页面、健康检查、指标
type CommonModule struct{}

func init() {
	registry.Register(&CommonModule{})
}

func (m *CommonModule) Name() string {
	return "common"
}

func (m *CommonModule) Priority() int {
	return 100 // 最后初始化
}

func (m *CommonModule) Init(ctx *registry.ModuleContext) error {
	ctx.Router.LoadHTMLGlob("web/templates/*.html")
	setupRoutes(ctx.Router)
	return nil
}

func setupRoutes(r *gin.Engine) {
	// 用户注册页与收银台管理页
	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", nil)
	})
	r.GET("/admin", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin.html", nil)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	r.GET("/metrics", metrics.Handler())
}
