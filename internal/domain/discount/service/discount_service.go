package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	auditmodel "suzu_discount/internal/domain/audit/model"
	"suzu_discount/internal/domain/discount/model"
	"suzu_discount/internal/domain/discount/repository"
	otpservice "suzu_discount/internal/domain/otp/service"
	"suzu_discount/internal/pkg/codegen"
	"suzu_discount/internal/pkg/config"
	"suzu_discount/internal/pkg/qr"
	"suzu_discount/pkg/logger"
	"suzu_discount/pkg/metrics"
	"suzu_discount/pkg/security"
)

// 对外生命周期错误，handler 按此映射状态码与文案
var (
	ErrPhoneRequired = errors.New("phone number is required")
	ErrInvalidPhone  = errors.New("invalid phone number format")
	ErrAlreadyUsed   = errors.New("phone number has already used a discount code")
	ErrUserNotFound  = errors.New("user not found")
	ErrOTPInvalid    = errors.New("invalid or expired otp")
	ErrCodeNotFound  = errors.New("code not found")
	ErrNotVerified   = errors.New("phone number not verified")
	ErrCodeUsed      = errors.New("code already used")
)

// 核销码冲突重试上限，碰撞概率可忽略，兜底即可
const maxCodeRetries = 3

// RequestMeta 请求来源信息，透传给审计日志
type RequestMeta struct {
	SourceAddr string
	UserAgent  string
}

// OTPFlow 验证码子流程，生产实现为 otp 模块的服务
type OTPFlow interface {
	Issue(ctx context.Context, phone string) error
	Verify(phone, code string) (bool, error)
}

// Auditor 审计钩子
type Auditor interface {
	Record(action, phone, details, sourceAddr, userAgent string)
}

// CardView 返回给用户的折扣卡数据，二维码按需渲染
type CardView struct {
	Discount   int    `json:"discount"`
	UniqueCode string `json:"unique_code"`
	QRCode     string `json:"qr_code"`
	IsVerified bool   `json:"is_verified"`
}

// Receipt 核销回执
type Receipt struct {
	PhoneNumber        string `json:"phone_number"`
	DiscountPercentage int    `json:"discount_percentage"`
	UniqueCode         string `json:"unique_code"`
	RedeemedAt         string `json:"redeemed_at"`
}

// DiscountService 注册/验证/核销生命周期编排
type DiscountService interface {
	Register(ctx context.Context, phone string, meta RequestMeta) (*CardView, error)
	VerifyOTP(ctx context.Context, phone, code string, meta RequestMeta) (*CardView, error)
	Redeem(raw string, meta RequestMeta) (*Receipt, error)
	ListUsers() ([]model.DiscountRecord, *model.Stats, error)
	Search(query string) ([]model.DiscountRecord, error)
}

// discountService 实现
type discountService struct {
	repo  repository.DiscountRepository
	otp   OTPFlow
	audit Auditor
	cfg   *config.Config
}

// NewDiscountService 创建生命周期服务
func NewDiscountService(repo repository.DiscountRepository, otp OTPFlow, audit Auditor, cfg *config.Config) DiscountService {
	return &discountService{
		repo:  repo,
		otp:   otp,
		audit: audit,
		cfg:   cfg,
	}
}

// normalizePhone 按配置的校验模式清洗手机号
// strict 模式归一化失败返回 ErrInvalidPhone；none 模式只要求非空
func (s *discountService) normalizePhone(phone string) (string, error) {
	phone = security.Sanitize(phone)
	if phone == "" {
		return "", ErrPhoneRequired
	}

	if s.cfg.Phone.Validation == security.PhoneValidationNone {
		return strings.TrimSpace(phone), nil
	}

	normalized := security.NormalizePhone(phone)
	if normalized == "" {
		return "", ErrInvalidPhone
	}
	return normalized, nil
}

// pickDiscount 从配置档位中随机取一档
func (s *discountService) pickDiscount() int {
	d := s.cfg.Discount
	steps := (d.Max-d.Min)/d.Step + 1
	return d.Min + d.Step*rand.IntN(steps)
}

func (s *discountService) cardView(record *model.DiscountRecord) (*CardView, error) {
	image, err := qr.Encode(record.EncodedPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to render card: %w", err)
	}
	return &CardView{
		Discount:   record.DiscountPercentage,
		UniqueCode: record.UniqueCode,
		QRCode:     image,
		IsVerified: record.IsVerified,
	}, nil
}

// issueOTP 发起验证码投递，限流与投递失败都不影响主流程
func (s *discountService) issueOTP(ctx context.Context, phone string) {
	if err := s.otp.Issue(ctx, phone); err != nil {
		if errors.Is(err, otpservice.ErrResendThrottled) {
			return
		}
		if logger.Log != nil {
			logger.Log.Warn("Failed to issue OTP", zap.String("phone", phone), zap.Error(err))
		}
	}
}

// Register 注册并发卡
// 同一手机号重复注册返回首次的卡片数据，已核销的手机号拒绝
func (s *discountService) Register(ctx context.Context, phone string, meta RequestMeta) (*CardView, error) {
	normalized, err := s.normalizePhone(phone)
	if err != nil {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		return nil, err
	}

	existing, err := s.repo.GetByPhone(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to look up phone: %w", err)
	}
	if existing != nil {
		if existing.IsUsed {
			s.audit.Record(auditmodel.ActionRegistrationBlocked, normalized,
				"registration rejected, code already redeemed", meta.SourceAddr, meta.UserAgent)
			metrics.Registrations.WithLabelValues("already_used").Inc()
			return nil, ErrAlreadyUsed
		}

		// 未核销的重复注册返回原卡片；未验证的顺带补发验证码
		if s.cfg.OTP.Required && !existing.IsVerified {
			s.issueOTP(ctx, normalized)
		}
		metrics.Registrations.WithLabelValues("existing").Inc()
		return s.cardView(existing)
	}

	record, err := s.createRecord(normalized)
	if err != nil {
		if errors.Is(err, ErrAlreadyUsed) {
			metrics.Registrations.WithLabelValues("already_used").Inc()
		}
		return nil, err
	}

	if s.cfg.OTP.Required {
		s.issueOTP(ctx, normalized)
	}

	s.audit.Record(auditmodel.ActionUserRegistered, normalized,
		fmt.Sprintf("registered with %d%% discount", record.DiscountPercentage),
		meta.SourceAddr, meta.UserAgent)
	metrics.Registrations.WithLabelValues("success").Inc()

	return s.cardView(record)
}

// createRecord 生成折扣与核销码并落库
// 唯一约束冲突时区分两种情况: 手机号被并发注册则复用已有记录，
// 核销码撞车则换码重试
func (s *discountService) createRecord(phone string) (*model.DiscountRecord, error) {
	discount := s.pickDiscount()

	for i := 0; i < maxCodeRetries; i++ {
		code, err := codegen.GenerateUniqueCode()
		if err != nil {
			return nil, err
		}

		record := &model.DiscountRecord{
			PhoneNumber:        phone,
			DiscountPercentage: discount,
			UniqueCode:         code,
			EncodedPayload:     codegen.EncodePayload(code, phone, discount),
			IsVerified:         !s.cfg.OTP.Required,
		}

		err = s.repo.Create(record)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("failed to create discount record: %w", err)
		}

		existing, lookupErr := s.repo.GetByPhone(phone)
		if lookupErr != nil {
			return nil, fmt.Errorf("failed to look up phone after conflict: %w", lookupErr)
		}
		if existing != nil {
			if existing.IsUsed {
				return nil, ErrAlreadyUsed
			}
			return existing, nil
		}
		// 手机号没有记录，说明撞的是核销码，换一个重试
	}

	return nil, errors.New("failed to generate a unique code")
}

// VerifyOTP 校验验证码并标记手机号已验证
func (s *discountService) VerifyOTP(ctx context.Context, phone, code string, meta RequestMeta) (*CardView, error) {
	normalized, err := s.normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.GetByPhone(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to look up phone: %w", err)
	}
	if record == nil {
		return nil, ErrUserNotFound
	}

	code = security.Sanitize(code)
	ok, err := s.otp.Verify(normalized, code)
	if err != nil {
		return nil, fmt.Errorf("failed to verify otp: %w", err)
	}
	if !ok {
		s.audit.Record(auditmodel.ActionOTPVerificationFailed, normalized,
			"otp rejected", meta.SourceAddr, meta.UserAgent)
		return nil, ErrOTPInvalid
	}

	if _, err := s.repo.MarkVerified(normalized); err != nil {
		return nil, fmt.Errorf("failed to mark phone verified: %w", err)
	}
	record.IsVerified = true

	s.audit.Record(auditmodel.ActionOTPVerified, normalized,
		"phone verified", meta.SourceAddr, meta.UserAgent)

	return s.cardView(record)
}

// Redeem 核销
// 接受扫码载荷或裸核销码；未找到 / 未验证 / 已使用是三种不同错误
func (s *discountService) Redeem(raw string, meta RequestMeta) (*Receipt, error) {
	payload := codegen.DecodePayload(security.Sanitize(raw))

	record, err := s.repo.GetByCode(payload.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up code: %w", err)
	}
	if record == nil {
		s.audit.Record(auditmodel.ActionRedeemFailed, "",
			"code not found: "+payload.Code, meta.SourceAddr, meta.UserAgent)
		metrics.Redemptions.WithLabelValues("not_found").Inc()
		return nil, ErrCodeNotFound
	}
	if !record.IsVerified {
		s.audit.Record(auditmodel.ActionRedeemFailed, record.PhoneNumber,
			"phone not verified", meta.SourceAddr, meta.UserAgent)
		metrics.Redemptions.WithLabelValues("unverified").Inc()
		return nil, ErrNotVerified
	}
	if record.IsUsed {
		s.audit.Record(auditmodel.ActionRedeemFailed, record.PhoneNumber,
			"code already used", meta.SourceAddr, meta.UserAgent)
		metrics.Redemptions.WithLabelValues("already_used").Inc()
		return nil, ErrCodeUsed
	}

	ok, err := s.repo.Redeem(record.UniqueCode)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem code: %w", err)
	}
	if !ok {
		// 条件更新没命中行，说明并发请求抢先核销了
		metrics.Redemptions.WithLabelValues("already_used").Inc()
		return nil, ErrCodeUsed
	}

	updated, err := s.repo.GetByCode(record.UniqueCode)
	if err != nil || updated == nil {
		updated = record
	}

	s.audit.Record(auditmodel.ActionCodeRedeemed, updated.PhoneNumber,
		fmt.Sprintf("redeemed %d%% discount", updated.DiscountPercentage),
		meta.SourceAddr, meta.UserAgent)
	metrics.Redemptions.WithLabelValues("success").Inc()

	redeemedAt := ""
	if updated.UsedAt != nil {
		redeemedAt = updated.UsedAt.Format("2006-01-02 15:04:05")
	}

	return &Receipt{
		PhoneNumber:        updated.PhoneNumber,
		DiscountPercentage: updated.DiscountPercentage,
		UniqueCode:         updated.UniqueCode,
		RedeemedAt:         redeemedAt,
	}, nil
}

// ListUsers 管理端列表与统计
func (s *discountService) ListUsers() ([]model.DiscountRecord, *model.Stats, error) {
	records, err := s.repo.List()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list records: %w", err)
	}

	stats, err := s.repo.Stats()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	return records, stats, nil
}

// Search 按手机号模糊查询
func (s *discountService) Search(query string) ([]model.DiscountRecord, error) {
	return s.repo.Search(security.Sanitize(query))
}
