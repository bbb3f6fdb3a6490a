package billing

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultNumberPrefix is prepended to generated invoice numbers
const DefaultNumberPrefix = "INV"

// NumberGenerator produces invoice numbers. Only uniqueness matters; callers
// must not parse the result. Collisions are caught by the unique index and
// retried with a fresh number.
type NumberGenerator interface {
	Next(issuedAt time.Time) string
}

// ULIDNumberGenerator builds numbers such as INV-20261018-7ZQ4M1K9XA from the
// issue date and the random part of a monotonic ULID.
type ULIDNumberGenerator struct {
	prefix  string
	mu      sync.Mutex
	entropy io.Reader
}

// NewULIDNumberGenerator creates a generator with the given prefix
func NewULIDNumberGenerator(prefix string) *ULIDNumberGenerator {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultNumberPrefix
	}
	return &ULIDNumberGenerator{
		prefix:  prefix,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Next returns a new invoice number for the given issue date
func (g *ULIDNumberGenerator) Next(issuedAt time.Time) string {
	g.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	g.mu.Unlock()

	s := id.String()
	return fmt.Sprintf("%s-%s-%s", g.prefix, issuedAt.Format("20060102"), s[len(s)-10:])
}
