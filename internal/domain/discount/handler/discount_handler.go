package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"suzu_discount/internal/domain/discount/service"
	"suzu_discount/pkg/response"
)

// DiscountHandler 注册与验证接口
type DiscountHandler struct {
	service service.DiscountService
}

// NewDiscountHandler 创建处理器
func NewDiscountHandler(service service.DiscountService) *DiscountHandler {
	return &DiscountHandler{service: service}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// VerifyOTPRequest 验证码校验请求
type VerifyOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	OTPCode     string `json:"otp_code"`
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		SourceAddr: c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
}

// Register 注册并返回折扣卡
// POST /api/register
func (h *DiscountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.MsgPhoneRequired)
		return
	}

	card, err := h.service.Register(c.Request.Context(), req.PhoneNumber, requestMeta(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPhoneRequired):
			response.Error(c, http.StatusBadRequest, response.MsgPhoneRequired)
		case errors.Is(err, service.ErrInvalidPhone):
			response.Error(c, http.StatusBadRequest, response.MsgInvalidPhone)
		case errors.Is(err, service.ErrAlreadyUsed):
			response.Error(c, http.StatusBadRequest, response.MsgPhoneAlreadyUsed)
		default:
			response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
		}
		return
	}

	message := "Registration successful! Your discount code is ready."
	if !card.IsVerified {
		message = "Registration successful! Check WhatsApp for your verification code."
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     message,
		"discount":    card.Discount,
		"unique_code": card.UniqueCode,
		"qr_code":     card.QRCode,
		"is_verified": card.IsVerified,
	})
}

// VerifyOTP 校验验证码
// POST /api/verify-otp
func (h *DiscountHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.MsgPhoneRequired)
		return
	}

	card, err := h.service.VerifyOTP(c.Request.Context(), req.PhoneNumber, req.OTPCode, requestMeta(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPhoneRequired):
			response.Error(c, http.StatusBadRequest, response.MsgPhoneRequired)
		case errors.Is(err, service.ErrInvalidPhone):
			response.Error(c, http.StatusBadRequest, response.MsgInvalidPhone)
		case errors.Is(err, service.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, response.MsgUserNotFound)
		case errors.Is(err, service.ErrOTPInvalid):
			response.Error(c, http.StatusBadRequest, response.MsgInvalidOTP)
		default:
			response.Error(c, http.StatusInternalServerError, response.MsgInternalError)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Phone number verified successfully!",
		"discount":    card.Discount,
		"unique_code": card.UniqueCode,
		"qr_code":     card.QRCode,
		"is_verified": card.IsVerified,
	})
}
