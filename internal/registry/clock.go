package registry

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts wall-clock access so a Wrap-ed listener's recorded
// timestamps can be made deterministic in tests, the same separation
// bt-go/internal/bt keeps between its service and Clock/RealClock.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator produces operation identifiers.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random UUIDs, grounded on bt-go's own
// UUIDGenerator (internal/bt/clock.go).
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }
