package model

import "time"

// OtpChallenge 一次性验证码挑战
// 同一手机号允许多条历史记录，验证时只取最新的未过期未验证一条
type OtpChallenge struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PhoneNumber  string    `gorm:"size:20;index;not null" json:"phone_number"`
	Code         string    `gorm:"size:10;not null" json:"-"`
	ExpiresAt    time.Time `gorm:"index;not null" json:"expires_at"`
	IsVerified   bool      `gorm:"not null;default:false" json:"is_verified"`
	AttemptCount int       `gorm:"not null;default:0" json:"attempt_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func (OtpChallenge) TableName() string {
	return "otp_challenges"
}
