package rmw

import (
	"sync"

	"github.com/google/uuid"
)

// GID identifies an entity for its whole lifetime.
type GID uuid.UUID

func (g GID) String() string { return uuid.UUID(g).String() }

// IsZero reports whether g is the zero GID.
func (g GID) IsZero() bool { return g == GID{} }

// GIDGenerator produces entity GIDs.
type GIDGenerator interface {
	Generate() GID
}

// UUIDv7Generator produces time-ordered GIDs, so entities sort by creation.
type UUIDv7Generator struct{}

// Generate panics if the system random source fails.
func (UUIDv7Generator) Generate() GID {
	return GID(uuid.Must(uuid.NewV7()))
}

// SequentialGenerator produces GIDs whose last eight bytes count up from 1.
// Used where output has to be reproducible.
type SequentialGenerator struct {
	mu sync.Mutex
	n  uint64
}

func (g *SequentialGenerator) Generate() GID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	var gid GID
	for i := 0; i < 8; i++ {
		gid[15-i] = byte(g.n >> (8 * i))
	}
	return gid
}
