package app

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

func newUUID() string {
	return uuid.NewString()
}

// newBookingReference returns a short human-readable reference like
// BK-9F3A21C4. Uniqueness is enforced per org by the store; collisions are
// retried by the caller.
func newBookingReference() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "BK-" + uuid.NewString()[:8]
	}
	return fmt.Sprintf("BK-%X", b)
}
