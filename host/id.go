package host

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is a vehicle's stable identity, minted once and carried in its saved state
type ID string

// NewID mints a fresh identity
func NewID() ID {
	return ID(uuid.NewString())
}

// ParseID validates a saved identity
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parsing vehicle id %q: %w", s, err)
	}
	return ID(u.String()), nil
}

func (id ID) String() string {
	return string(id)
}
