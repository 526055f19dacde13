// Package state holds the value types shared by the solver, the investment
// generator and the analyzer.
package state

import (
	"encoding/json"
	"fmt"
)

const MaxHealth = 100

// A State is a snapshot at the end of a period: the health and the cash
// carried into the next period. States are compared by value and used
// directly as memo keys.
type State struct {
	Period int
	Health int
	Cash   int
}

func New(period, health, cash int) State {
	return State{Period: period, Health: health, Cash: cash}
}

func (s State) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.Period, s.Health, s.Cash)
}

// Terminal reports whether the game has ended at s: either the horizon has
// been passed or health has run out.
func (s State) Terminal(horizon int) bool {
	return s.Period > horizon || s.Health <= 0
}

// MarshalJSON encodes a state as [period, health, cash], the layout used by
// the cleaned experiment files.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{s.Period, s.Health, s.Cash})
}

func (s *State) UnmarshalJSON(b []byte) error {
	var arr []int
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	if len(arr) != 3 {
		return fmt.Errorf("state needs 3 values, got %d", len(arr))
	}
	s.Period, s.Health, s.Cash = arr[0], arr[1], arr[2]
	return nil
}

// MarshalYAML uses the same flow-sequence layout as JSON.
func (s State) MarshalYAML() (any, error) {
	return []int{s.Period, s.Health, s.Cash}, nil
}

// An Investment splits the cash available in a period three ways.
type Investment struct {
	Health int
	Life   int
	Banked int
}

func (i Investment) Total() int {
	return i.Health + i.Life + i.Banked
}

func (i Investment) String() string {
	return fmt.Sprintf("health=%d life=%d banked=%d", i.Health, i.Life, i.Banked)
}

// An Outcome is the state reached by one investment together with the
// enjoyment it earned.
type Outcome struct {
	State   State
	Utility float64
}
