package model

import "time"

// DiscountRecord 折扣记录，每个手机号唯一一条
// is_used 为真必然 is_verified 为真；used_at 当且仅当 is_used 为真时有值；
// is_used 置真后不可逆，记录永不删除
type DiscountRecord struct {
	ID                 uint       `gorm:"primarykey" json:"id"`
	PhoneNumber        string     `gorm:"uniqueIndex;size:20;not null" json:"phone_number"`
	DiscountPercentage int        `gorm:"not null" json:"discount_percentage"`
	UniqueCode         string     `gorm:"uniqueIndex;size:32;not null" json:"unique_code"`
	EncodedPayload     string     `gorm:"size:128;not null" json:"-"`
	IsVerified         bool       `gorm:"default:false" json:"is_verified"`
	IsUsed             bool       `gorm:"default:false" json:"is_used"`
	CreatedAt          time.Time  `json:"created_at"`
	UsedAt             *time.Time `json:"used_at"`
}

// TableName 自定义表名
func (DiscountRecord) TableName() string {
	return "discount_records"
}

// Stats 管理端聚合统计
type Stats struct {
	TotalUsers    int64 `json:"total_users"`
	VerifiedUsers int64 `json:"verified_users"`
	ActiveCodes   int64 `json:"active_codes"`
	RedeemedCodes int64 `json:"redeemed_codes"`
}
