package admin

import (
	"errors"

	"github.com/gin-gonic/gin"

	"suzu_discount/internal/domain/admin/handler"
	"suzu_discount/internal/pkg/config"
	"suzu_discount/internal/pkg/middleware"
	"suzu_discount/internal/pkg/registry"
)

// AdminModule 管理端模块
type AdminModule struct{}

func init() {
	registry.Register(&AdminModule{})
}

func (m *AdminModule) Name() string {
	return "admin"
}

// Priority 在 discount 模块之后初始化，复用其生命周期服务
func (m *AdminModule) Priority() int {
	return 20
}

func (m *AdminModule) Init(ctx *registry.ModuleContext) error {
	if ctx.Discount == nil {
		return errors.New("admin module requires the discount module to be initialized first")
	}

	aHandler := handler.NewAdminHandler(ctx.Discount, ctx.Audit, ctx.Cfg.Admin)

	setupRoutes(ctx.Router, aHandler, ctx.Cfg.Admin)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.AdminHandler, cfg config.AdminConfig) {
	g := r.Group("/api/admin")

	// 登录本身不受令牌保护
	g.POST("/login", h.Login)

	authorized := g.Group("")
	authorized.Use(middleware.AdminAuthMiddleware(cfg))
	{
		authorized.GET("/users", h.Users)
		authorized.GET("/search", h.Search)
		authorized.POST("/redeem", h.Redeem)
		authorized.GET("/audit", h.AuditLog)
	}
}
