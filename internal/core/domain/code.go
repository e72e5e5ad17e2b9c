package domain

import (
	"crypto/rand"
	"fmt"
)

// Alphabet for tracking codes: uppercase base32 without easily confused
// characters (no 0/O, 1/I/L).
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const codeLength = 10

// NewTrackingCode generates a public, collision-resistant order code,
// e.g. "RM-7KQ2MXV4PD". It replaces the legacy max-id-plus-one scheme,
// which raced under concurrent order creation.
func NewTrackingCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("tracking code entropy: %v", err))
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return "RM-" + string(buf)
}
