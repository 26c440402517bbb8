package ids

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLeadID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^L-\d{8}-[0-9A-Z]{4}$`)

	for i := 0; i < 10; i++ {
		id := NewLeadID()
		assert.Regexp(t, pattern, id)
	}
}

func TestNewGroupID_Format(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^GL-\d{8}-[0-9A-Z]{4}$`), NewGroupID())
}

func TestNewBookingNumber_Format(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^B-\d{8}-[0-9A-Z]{4}$`), NewBookingNumber())
}

func TestIDs_AreUnlikelyToCollide(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		seen[NewLeadID()] = true
	}
	// 4 random chars out of 36 give ~1.6M combinations per day
	assert.Greater(t, len(seen), 190)
}
