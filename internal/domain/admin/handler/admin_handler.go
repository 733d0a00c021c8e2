package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	auditmodel "suzu_discount/internal/domain/audit/model"
	"suzu_discount/internal/domain/discount/service"
	"suzu_discount/internal/pkg/config"
	"suzu_discount/pkg/logger"
	"suzu_discount/pkg/response"
	"suzu_discount/pkg/security"
	"suzu_discount/pkg/utils"
)

// Auditor 审计依赖，生产实现为 audit 模块的服务
type Auditor interface {
	Record(action, phone, details, sourceAddr, userAgent string)
	Recent(limit int) ([]auditmodel.AuditEntry, error)
}

// AdminHandler 管理端接口
type AdminHandler struct {
	discount service.DiscountService
	audit    Auditor
	cfg      config.AdminConfig
}

// NewAdminHandler 创建管理端处理器
func NewAdminHandler(discount service.DiscountService, audit Auditor, cfg config.AdminConfig) *AdminHandler {
	return &AdminHandler{
		discount: discount,
		audit:    audit,
		cfg:      cfg,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Password string `json:"password"`
}

// RedeemRequest 核销请求，code 可以是裸核销码或扫码载荷
type RedeemRequest struct {
	Code string `json:"code"`
}

// Login 管理员登录
// POST /api/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		response.Error(c, http.StatusUnauthorized, response.MsgInvalidPassword)
		return
	}

	if !security.VerifySecret(req.Password, h.cfg.PasswordHash) {
		h.audit.Record(auditmodel.ActionAdminLoginFailed, "",
			"wrong admin password", c.ClientIP(), c.Request.UserAgent())
		response.Error(c, http.StatusUnauthorized, response.MsgInvalidPassword)
		return
	}

	token, err := utils.GenerateAdminToken(h.cfg.TokenSecret,
		time.Duration(h.cfg.TokenExpireHours)*time.Hour)
	if err != nil {
		logger.Log.Error("Failed to sign admin token", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
		return
	}

	h.audit.Record(auditmodel.ActionAdminLoginSuccess, "",
		"admin logged in", c.ClientIP(), c.Request.UserAgent())

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
	})
}

// Users 全量用户列表与统计
// GET /api/admin/users
func (h *AdminHandler) Users(c *gin.Context) {
	records, stats, err := h.discount.ListUsers()
	if err != nil {
		logger.Log.Error("Failed to list users", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
		return
	}

	h.audit.Record(auditmodel.ActionAdminViewUsers, "",
		"viewed user list", c.ClientIP(), c.Request.UserAgent())

	c.JSON(http.StatusOK, gin.H{
		"users": records,
		"stats": stats,
	})
}

// Search 按手机号模糊查询
// GET /api/admin/search?q=
func (h *AdminHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		response.Error(c, http.StatusBadRequest, response.MsgQueryRequired)
		return
	}

	records, err := h.discount.Search(query)
	if err != nil {
		logger.Log.Error("Failed to search users", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
		return
	}

	h.audit.Record(auditmodel.ActionAdminSearchUsers, "",
		"searched for: "+query, c.ClientIP(), c.Request.UserAgent())

	c.JSON(http.StatusOK, gin.H{
		"users":        records,
		"total_found":  len(records),
		"search_query": query,
	})
}

// Redeem 收银台核销
// POST /api/admin/redeem
func (h *AdminHandler) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		response.Error(c, http.StatusBadRequest, response.MsgCodeRequired)
		return
	}

	meta := service.RequestMeta{SourceAddr: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	receipt, err := h.discount.Redeem(req.Code, meta)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeNotFound):
			response.Error(c, http.StatusNotFound, response.MsgCodeNotFound)
		case errors.Is(err, service.ErrNotVerified):
			response.Error(c, http.StatusBadRequest, response.MsgNotVerified)
		case errors.Is(err, service.ErrCodeUsed):
			response.Error(c, http.StatusBadRequest, response.MsgCodeAlreadyUsed)
		default:
			logger.Log.Error("Failed to redeem code", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":             "Code redeemed successfully",
		"phone_number":        receipt.PhoneNumber,
		"discount_percentage": receipt.DiscountPercentage,
		"unique_code":         receipt.UniqueCode,
		"redeemed_at":         receipt.RedeemedAt,
	})
}

// AuditLog 最近的审计记录
// GET /api/admin/audit?limit=
func (h *AdminHandler) AuditLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	logs, err := h.audit.Recent(limit)
	if err != nil {
		logger.Log.Error("Failed to load audit log", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
