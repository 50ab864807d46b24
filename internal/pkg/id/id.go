package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs are lexicographically sortable by
// creation time, which the OTP ledger relies on for its "latest row" ordering,
// and are safe for use as DynamoDB partition keys.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
