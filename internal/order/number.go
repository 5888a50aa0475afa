package order

import (
	"crypto/rand"
	"math/big"
	"time"
)

const numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateOrderNumber builds a human-readable order number: "ORD", the
// second-resolution timestamp, and 4 random uppercase alphanumerics.
// Collisions are not formally excluded; the unique index on order_number
// turns one into a loud insert failure instead of a silent duplicate.
func GenerateOrderNumber(now time.Time) string {
	suffix := make([]byte, 4)
	max := big.NewInt(int64(len(numberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is
			// broken; fall back to a clock-derived index.
			n = big.NewInt(now.UnixNano() % int64(len(numberAlphabet)))
		}
		suffix[i] = numberAlphabet[n.Int64()]
	}
	return "ORD" + now.Format("20060102150405") + string(suffix)
}
