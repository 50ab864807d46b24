package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEnable           = "enable"
	fieldUsed             = "used"
	fieldIsActive         = "is_active"
	fieldIsVerified       = "is_verified"
	fieldPasswordHash     = "password_hash"
	fieldNickname         = "nickname"
	fieldPersonalization  = "personalization_questions"
	fieldAvatarKey        = "avatar_key"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshExpiresAt = "refresh_expires_at"
)
