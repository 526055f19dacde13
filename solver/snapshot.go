package solver

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/healthgame/hcdp/state"
)

// SnapshotEntry is one memo table row.
type SnapshotEntry[V any] struct {
	State  state.State `json:"state"`
	Result V           `json:"result"`
}

// Snapshot is a portable copy of a solver's memo table, tagged with the
// calibration fingerprint it was computed under.
type Snapshot[V any] struct {
	Fingerprint uint64             `json:"fingerprint"`
	Entries     []SnapshotEntry[V] `json:"entries"`
}

func compareStates(a, b state.State) int {
	if c := cmp.Compare(a.Period, b.Period); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Health, b.Health); c != 0 {
		return c
	}
	return cmp.Compare(a.Cash, b.Cash)
}

func snapshotOf[V any](fp uint64, entries map[state.State]V) Snapshot[V] {
	snap := Snapshot[V]{Fingerprint: fp, Entries: make([]SnapshotEntry[V], 0, len(entries))}
	for k, v := range entries {
		snap.Entries = append(snap.Entries, SnapshotEntry[V]{State: k, Result: v})
	}
	slices.SortFunc(snap.Entries, func(a, b SnapshotEntry[V]) int {
		return compareStates(a.State, b.State)
	})
	return snap
}

func entriesOf[V any](snap Snapshot[V], fp uint64) (map[state.State]V, error) {
	if snap.Fingerprint != fp {
		return nil, fmt.Errorf("%w: have %016x, snapshot %016x",
			ErrCalibrationMismatch, fp, snap.Fingerprint)
	}
	m := make(map[state.State]V, len(snap.Entries))
	for _, e := range snap.Entries {
		m[e.State] = e.Result
	}
	return m, nil
}

// Snapshot copies the memo table, sorted by state.
func (s *Solver) Snapshot() Snapshot[Solution] {
	return snapshotOf(s.fingerprint, s.table.Entries())
}

// Restore loads a snapshot into the memo table. Snapshots taken under a
// different calibration are rejected.
func (s *Solver) Restore(snap Snapshot[Solution]) error {
	m, err := entriesOf(snap, s.fingerprint)
	if err != nil {
		return err
	}
	added := s.table.Merge(m)
	log.Debug().Int("added", added).Int("entries", len(m)).Msg("restored-snapshot")
	return nil
}

func (s *StochasticSolver) Snapshot() Snapshot[Branches] {
	return snapshotOf(s.fingerprint, s.table.Entries())
}

func (s *StochasticSolver) Restore(snap Snapshot[Branches]) error {
	m, err := entriesOf(snap, s.fingerprint)
	if err != nil {
		return err
	}
	added := s.table.Merge(m)
	log.Debug().Int("added", added).Int("entries", len(m)).Msg("restored-snapshot")
	return nil
}
