package model

import "time"

// 审计动作标签
const (
	ActionUserRegistered        = "USER_REGISTERED"
	ActionRegistrationBlocked   = "REGISTRATION_BLOCKED"
	ActionOTPSent               = "OTP_SENT"
	ActionOTPSendFailed         = "OTP_SEND_FAILED"
	ActionOTPVerified           = "OTP_VERIFIED"
	ActionOTPVerificationFailed = "OTP_VERIFICATION_FAILED"
	ActionAdminLoginSuccess     = "ADMIN_LOGIN_SUCCESS"
	ActionAdminLoginFailed      = "ADMIN_LOGIN_FAILED"
	ActionAdminViewUsers        = "ADMIN_VIEW_USERS"
	ActionAdminSearchUsers      = "ADMIN_SEARCH_USERS"
	ActionCodeRedeemed          = "CODE_REDEEMED"
	ActionRedeemFailed          = "REDEEM_FAILED"
)

// AuditEntry 审计日志条目，只追加，落库后不再修改或删除
type AuditEntry struct {
	ID          int64     `db:"id" json:"id"`
	Action      string    `db:"action" json:"action"`
	PhoneNumber *string   `db:"phone_number" json:"phone_number"`
	Details     string    `db:"details" json:"details"`
	SourceAddr  *string   `db:"ip_address" json:"ip_address"`
	UserAgent   *string   `db:"user_agent" json:"user_agent"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
