package billing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestULIDNumberGenerator_Next(t *testing.T) {
	gen := NewULIDNumberGenerator("")
	issued := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	number := gen.Next(issued)
	assert.True(t, strings.HasPrefix(number, "INV-20261018-"), number)
	assert.Len(t, number, len("INV-20261018-")+10)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		n := gen.Next(issued)
		_, dup := seen[n]
		assert.False(t, dup, "duplicate number %s", n)
		seen[n] = struct{}{}
	}
}

func TestULIDNumberGenerator_CustomPrefix(t *testing.T) {
	gen := NewULIDNumberGenerator("ACME")
	assert.True(t, strings.HasPrefix(gen.Next(time.Now()), "ACME-"))
}
