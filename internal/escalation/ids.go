package escalation

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// ID prefixes.
const (
	NotificationIDPrefix = "NTF-"
	IncidentIDPrefix     = "INC-"
	TaskIDPrefix         = "TI-"
)

// SeedGenerator produces unique seeds for record IDs.
// Implementations must be safe for concurrent use and never repeat a seed
// within the process lifetime.
type SeedGenerator interface {
	NextSeed() string
}

// SequenceSeeds generates strictly increasing decimal seeds.
type SequenceSeeds struct {
	seq atomic.Int64
}

// NewSequenceSeeds creates a generator whose first seed is start+1.
func NewSequenceSeeds(start int64) *SequenceSeeds {
	s := &SequenceSeeds{}
	s.seq.Store(start)
	return s
}

// NextSeed returns the next seed.
func (s *SequenceSeeds) NextSeed() string {
	return strconv.FormatInt(s.seq.Add(1), 10)
}

// UUIDSeeds generates random UUID seeds.
type UUIDSeeds struct{}

// NextSeed returns a new random UUID.
func (UUIDSeeds) NextSeed() string {
	return uuid.NewString()
}

// NewSeedGenerator returns the generator for a configured strategy
// ("sequence" or "uuid").
func NewSeedGenerator(strategy string) SeedGenerator {
	if strategy == "uuid" {
		return UUIDSeeds{}
	}
	return NewSequenceSeeds(0)
}
