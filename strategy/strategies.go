package strategy

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash"
)

// Regenerator turns a health expenditure into health points regained.
type Regenerator interface {
	// Regenerate must return 0 for non-positive investment, and must never
	// return a negative amount.
	Regenerate(investment, health int) int
	fmt.Stringer
}

// Enjoyer turns a life expenditure into life enjoyment (utility).
type Enjoyer interface {
	Enjoy(investment, health int) float64
	fmt.Stringer
}

// Degenerator applies the passive health loss for a round. The returned
// health is clamped at 0.
type Degenerator interface {
	Degenerate(health, round int) int
	fmt.Stringer
}

// Harvester computes the cash earned in a round from the health the player
// entered the round with.
type Harvester interface {
	Harvest(health int) int
	fmt.Stringer
}

// HealthReader is implemented by regenerators whose output depends on the
// current health level, not only on the investment. Investment enumeration
// uses it to decide its cache key.
type HealthReader interface {
	ReadsHealth() bool
}

// Set bundles one of each strategy function. A solver is bound to exactly
// one Set for its lifetime.
type Set struct {
	Regeneration Regenerator
	Enjoyment    Enjoyer
	Degeneration Degenerator
	Harvest      Harvester
}

// RegenReadsHealth reports whether the regeneration formula depends on
// current health.
func (s *Set) RegenReadsHealth() bool {
	if hr, ok := s.Regeneration.(HealthReader); ok {
		return hr.ReadsHealth()
	}
	return false
}

// String returns the canonical description of all four functions and their
// coefficients. Two sets with the same description behave identically.
func (s *Set) String() string {
	var sb strings.Builder
	sb.WriteString("regen=")
	sb.WriteString(s.Regeneration.String())
	sb.WriteString(";enjoy=")
	sb.WriteString(s.Enjoyment.String())
	sb.WriteString(";degen=")
	sb.WriteString(s.Degeneration.String())
	sb.WriteString(";harvest=")
	sb.WriteString(s.Harvest.String())
	return sb.String()
}

// Fingerprint hashes the canonical description.
func (s *Set) Fingerprint() uint64 {
	return xxhash.Sum64String(s.String())
}

func (s *Set) validate() error {
	if s.Regeneration == nil || s.Enjoyment == nil || s.Degeneration == nil || s.Harvest == nil {
		return ErrIncompleteSet
	}
	return nil
}
