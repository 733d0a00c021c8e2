package response

// 对外错误文案
const (
	MsgPhoneRequired    = "Phone number is required"
	MsgInvalidPhone     = "Invalid Egyptian phone number format"
	MsgPhoneAlreadyUsed = "This phone number has already used a discount code"
	MsgInvalidOTP       = "Invalid or expired OTP"
	MsgUserNotFound     = "User not found"
	MsgInvalidPassword  = "Invalid password"
	MsgCodeRequired     = "Code is required"
	MsgCodeNotFound     = "Code not found"
	MsgNotVerified      = "Phone number not verified"
	MsgCodeAlreadyUsed  = "Code already used"
	MsgQueryRequired    = "Search query is required"
	MsgInternalError    = "Internal server error"
)
