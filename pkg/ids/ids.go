package ids

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Human-readable external ids shown to staff and customers,
// e.g. L-20250818-KQ5D for a lead, GL-20250818-64J7 for a lead group.

const randChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewLeadID generates a new external lead id (L-YYYYMMDD-XXXX)
func NewLeadID() string {
	return prefixed("L")
}

// NewGroupID generates a new lead group id (GL-YYYYMMDD-XXXX)
func NewGroupID() string {
	return prefixed("GL")
}

// NewBookingNumber generates a new booking number (B-YYYYMMDD-XXXX)
func NewBookingNumber() string {
	return prefixed("B")
}

func prefixed(prefix string) string {
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().UTC().Format("20060102"), randSuffix(4))
}

func randSuffix(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(randChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			b[i] = randChars[0]
			continue
		}
		b[i] = randChars[idx.Int64()]
	}
	return string(b)
}
