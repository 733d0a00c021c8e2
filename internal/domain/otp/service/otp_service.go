package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"suzu_discount/internal/domain/otp/repository"
	"suzu_discount/internal/pkg/config"
	"suzu_discount/pkg/logger"
)

// ErrResendThrottled 距上次发送间隔过短
var ErrResendThrottled = errors.New("please wait before requesting another code")

// Deliverer 投递出口，生产环境为 notifier.Dispatcher
type Deliverer interface {
	Dispatch(phone, message string)
}

// Throttle 发送频率限制
type Throttle interface {
	Allow(ctx context.Context, phone string) bool
}

// redisThrottle 基于 Redis SETNX 的发送间隔限制
type redisThrottle struct {
	rdb      *redis.Client
	interval time.Duration
}

// NewRedisThrottle 创建发送频率限制器
func NewRedisThrottle(rdb *redis.Client, interval time.Duration) Throttle {
	return &redisThrottle{rdb: rdb, interval: interval}
}

func (t *redisThrottle) Allow(ctx context.Context, phone string) bool {
	ok, err := t.rdb.SetNX(ctx, "otp:resend:"+phone, 1, t.interval).Result()
	if err != nil {
		// Redis 故障时放行，不让限流把注册打挂
		if logger.Log != nil {
			logger.Log.Warn("OTP throttle check failed, allowing send", zap.Error(err))
		}
		return true
	}
	return ok
}

// OTPService 验证码服务接口
type OTPService interface {
	Issue(ctx context.Context, phone string) error
	Verify(phone, code string) (bool, error)
	SweepExpired() (int64, error)
	StartSweeper()
}

// otpService 实现
type otpService struct {
	repo      repository.OTPRepository
	throttle  Throttle
	deliverer Deliverer
	cfg       config.OTPConfig
	template  string
}

// NewOTPService 创建验证码服务
func NewOTPService(repo repository.OTPRepository, throttle Throttle, deliverer Deliverer, cfg config.OTPConfig, template string) OTPService {
	return &otpService{
		repo:      repo,
		throttle:  throttle,
		deliverer: deliverer,
		cfg:       cfg,
		template:  template,
	}
}

// generateCode 生成定长数字验证码
func generateCode(length int) (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < length; i++ {
		limit.Mul(limit, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}

	return fmt.Sprintf("%0*d", length, n), nil
}

// Issue 生成验证码、落库并异步投递
func (s *otpService) Issue(ctx context.Context, phone string) error {
	if !s.throttle.Allow(ctx, phone) {
		return ErrResendThrottled
	}

	code, err := generateCode(s.cfg.Length)
	if err != nil {
		return err
	}

	ttl := time.Duration(s.cfg.ExpiryMinutes) * time.Minute
	if err := s.repo.Issue(phone, code, ttl); err != nil {
		return fmt.Errorf("failed to store otp challenge: %w", err)
	}

	message := fmt.Sprintf(s.template, code, s.cfg.ExpiryMinutes)
	s.deliverer.Dispatch(phone, message)

	return nil
}

// Verify 核对验证码
func (s *otpService) Verify(phone, code string) (bool, error) {
	return s.repo.Verify(phone, code)
}

// SweepExpired 清理过期挑战
func (s *otpService) SweepExpired() (int64, error) {
	return s.repo.SweepExpired()
}

// StartSweeper 启动时清理一次，之后按配置间隔周期清理
func (s *otpService) StartSweeper() {
	sweep := func() {
		removed, err := s.repo.SweepExpired()
		if err != nil {
			if logger.Log != nil {
				logger.Log.Error("OTP sweep failed", zap.Error(err))
			}
			return
		}
		if removed > 0 && logger.Log != nil {
			logger.Log.Info("Cleaned up expired OTP challenges", zap.Int64("removed", removed))
		}
	}

	sweep()

	go func() {
		ticker := time.NewTicker(time.Duration(s.cfg.SweepIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			sweep()
		}
	}()
}
