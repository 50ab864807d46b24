package domain

import "time"

// OneTimeCode is one row of the append-only OTP ledger.
// PK: email, SK: otp_id (ULID, so rows sort by creation time with insertion
// order as the tiebreak). Rows are keyed by email rather than user id so codes
// survive accounts that don't exist yet or were deleted meanwhile.
// Once Used is set the row is terminal — it is never reused or deleted by the
// application (the table's TTL on expires_at eventually reclaims it).
type OneTimeCode struct {
	Email     string    `json:"email" dynamodbav:"email"`
	OTPID     string    `json:"id" dynamodbav:"otp_id"`
	Code      string    `json:"-" dynamodbav:"code"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // Unix seconds, also the DynamoDB TTL attribute
	Used      bool      `json:"used" dynamodbav:"used"`
}

// IsValid reports whether the code can still be consumed at the given instant.
func (c *OneTimeCode) IsValid(now time.Time) bool {
	return now.Unix() < c.ExpiresAt && !c.Used
}
