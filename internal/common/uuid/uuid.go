package uuid

import "github.com/google/uuid"

//go:generate mockgen -package=mocks -destination=mocks/mock_uuid.go github.com/KirkDiggler/mentorlink/internal/common/uuid Generator

// Generator produces identifiers for users, sessions and ledger entries
type Generator interface {
	NewID() string
}

// RandomGenerator issues random (version 4) UUIDs
type RandomGenerator struct{}

// New creates a RandomGenerator
func New() *RandomGenerator {
	return &RandomGenerator{}
}

// NewID returns a new UUID string
func (g *RandomGenerator) NewID() string {
	return uuid.New().String()
}
