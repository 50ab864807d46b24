package domain

// Profile is the one-to-one companion record of a User.
// PK: user_id — created in the same transaction as its User and deleted with it.
type Profile struct {
	UserID          string                 `json:"user_id" dynamodbav:"user_id"`
	Nickname        string                 `json:"nickname" dynamodbav:"nickname"`
	Personalization map[string]interface{} `json:"personalization_questions" dynamodbav:"personalization_questions"`
	AvatarKey       string                 `json:"-" dynamodbav:"avatar_key"`
}

type UpdateProfileRequest struct {
	Nickname        *string                `json:"nickname"`
	Personalization map[string]interface{} `json:"personalization_questions"`
}
