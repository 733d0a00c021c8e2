package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"suzu_discount/internal/domain/otp/model"
)

// OTPRepository 接口定义
type OTPRepository interface {
	Issue(phone, code string, ttl time.Duration) error
	Verify(phone, code string) (bool, error)
	SweepExpired() (int64, error)
}

// otpRepository 实现
type otpRepository struct {
	db *gorm.DB
}

// NewOTPRepository 创建新的仓库实例
func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

// Issue 写入一条新挑战
func (r *otpRepository) Issue(phone, code string, ttl time.Duration) error {
	challenge := &model.OtpChallenge{
		PhoneNumber: phone,
		Code:        code,
		ExpiresAt:   time.Now().Add(ttl),
	}
	return r.db.Create(challenge).Error
}

// Verify 核对验证码
// 事务内行锁取最新一条未验证未过期且码值匹配的挑战并翻转 is_verified，
// 防止并发请求重复消费同一挑战。
// 过期、码值不符、无待验证挑战统一返回 false，不区分原因
func (r *otpRepository) Verify(phone, code string) (bool, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var challenge model.OtpChallenge
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("phone_number = ? AND code = ? AND is_verified = ? AND expires_at > ?",
				phone, code, false, time.Now()).
			Order("created_at DESC").
			First(&challenge).Error; err != nil {
			return err
		}

		return tx.Model(&model.OtpChallenge{}).
			Where("id = ?", challenge.ID).
			Updates(map[string]interface{}{
				"is_verified":   true,
				"attempt_count": gorm.Expr("attempt_count + 1"),
			}).Error
	})

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SweepExpired 删除所有已过期的挑战，返回删除数量
// 纯谓词删除，可重复并发执行
func (r *otpRepository) SweepExpired() (int64, error) {
	result := r.db.Where("expires_at < ?", time.Now()).Delete(&model.OtpChallenge{})
	return result.RowsAffected, result.Error
}
