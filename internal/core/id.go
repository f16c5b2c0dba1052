package core

import (
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const idRandomLength = 9

// GenerateID returns "<unix millis>-<9 base36 chars>". It is unique with high
// probability inside one process; use NewExpenseID for stored records.
func GenerateID() string {
	return generateID(time.Now())
}

func generateID(now time.Time) string {
	u := uuid.New()
	r := new(big.Int).SetBytes(u[:]).Text(36)
	for len(r) < idRandomLength {
		r = "0" + r
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + r[len(r)-idRandomLength:]
}

// NewExpenseID returns a random UUID string.
func NewExpenseID() string {
	return uuid.NewString()
}
