package discount

import (
	"time"

	"github.com/gin-gonic/gin"

	"suzu_discount/internal/domain/discount/handler"
	"suzu_discount/internal/domain/discount/repository"
	"suzu_discount/internal/domain/discount/service"
	otprepository "suzu_discount/internal/domain/otp/repository"
	otpservice "suzu_discount/internal/domain/otp/service"
	"suzu_discount/internal/pkg/registry"
)

// DiscountModule 折扣生命周期模块
type DiscountModule struct{}

func init() {
	registry.Register(&DiscountModule{})
}

func (m *DiscountModule) Name() string {
	return "discount"
}

func (m *DiscountModule) Priority() int {
	return 10
}

func (m *DiscountModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	otpRepo := otprepository.NewOTPRepository(ctx.DB)
	throttle := otpservice.NewRedisThrottle(ctx.Redis,
		time.Duration(ctx.Cfg.OTP.ResendIntervalSeconds)*time.Second)
	otpSvc := otpservice.NewOTPService(otpRepo, throttle, ctx.Notifier,
		ctx.Cfg.OTP, ctx.Cfg.WhatsApp.MessageTemplate)

	dRepo := repository.NewDiscountRepository(ctx.DB)
	dService := service.NewDiscountService(dRepo, otpSvc, ctx.Audit, ctx.Cfg)
	dHandler := handler.NewDiscountHandler(dService)

	// 后初始化的管理模块复用同一个生命周期服务
	ctx.Discount = dService

	// 过期验证码清理: 启动清一次，之后按配置间隔周期清理
	otpSvc.StartSweeper()

	// 2. 路由注册
	setupRoutes(ctx.Router, dHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.DiscountHandler) {
	g := r.Group("/api")
	{
		g.POST("/register", h.Register)
		g.POST("/verify-otp", h.VerifyOTP)
	}
}
