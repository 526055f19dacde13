package dataloaders

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/samber/lo"

	"github.com/healthgame/hcdp/gameanalysis"
	"github.com/healthgame/hcdp/state"
)

var (
	ErrShortGroup = errors.New("life has fewer rounds than the game length")
	ErrLongGroup  = errors.New("life has more rounds than the game length")
)

// Condition selects the experimental treatment to keep.
type Condition struct {
	Flat         int
	SocialLife   int
	SocialHealth int
	Retirement   int
}

// BaselineCondition is the flat, non-social, no-retirement treatment.
func BaselineCondition() Condition {
	return Condition{Flat: 1}
}

func (c Condition) Match(r RawRecord) bool {
	return r.Flat == c.Flat && r.SocialLife == c.SocialLife &&
		r.SocialHealth == c.SocialHealth && r.Retirement == c.Retirement
}

// Record is one cleaned round: the post-decision state and the cumulative
// enjoyment after the round. It serializes as
// [id, life, [[period, health, cash], enjoymentbalance]].
type Record struct {
	PlayerID         string
	Life             int
	State            state.State
	EnjoymentBalance float64
}

func (r Record) MarshalJSON() ([]byte, error) {
	id := any(r.PlayerID)
	if n, err := strconv.Atoi(r.PlayerID); err == nil {
		id = n
	}
	return json.Marshal([]any{id, r.Life, []any{r.State, r.EnjoymentBalance}})
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var outer []json.RawMessage
	if err := json.Unmarshal(b, &outer); err != nil {
		return err
	}
	if len(outer) < 3 {
		return fmt.Errorf("cleaned record needs 3 fields, got %d", len(outer))
	}
	dec := json.NewDecoder(bytes.NewReader(outer[0]))
	dec.UseNumber()
	var rawID any
	if err := dec.Decode(&rawID); err != nil {
		return err
	}
	switch v := rawID.(type) {
	case json.Number:
		r.PlayerID = v.String()
	case string:
		r.PlayerID = v
	default:
		return fmt.Errorf("bad player id %s", outer[0])
	}
	if err := json.Unmarshal(outer[1], &r.Life); err != nil {
		return fmt.Errorf("bad life: %w", err)
	}
	var round []json.RawMessage
	if err := json.Unmarshal(outer[2], &round); err != nil {
		return err
	}
	if len(round) != 2 {
		return fmt.Errorf("round needs [state, balance], got %d fields", len(round))
	}
	if err := json.Unmarshal(round[0], &r.State); err != nil {
		return err
	}
	return json.Unmarshal(round[1], &r.EnjoymentBalance)
}

func ReadCleaned(r io.Reader) ([]Record, error) {
	var recs []Record
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decoding cleaned records: %w", err)
	}
	return recs, nil
}

func WriteCleaned(w io.Writer, recs []Record) error {
	return json.NewEncoder(w).Encode(recs)
}

type lifeKey struct {
	id   string
	life int
}

// Clean keeps the lives played under cond, sorts each by period, and splits
// them by game length. Lives whose length is neither 9 nor 18 are dropped.
func Clean(raw []RawRecord, cond Condition) (nine, eighteen []Record) {
	kept := lo.Filter(raw, func(r RawRecord, _ int) bool {
		return cond.Match(r) && (r.Periods == 9 || r.Periods == 18)
	})
	groups := lo.GroupBy(kept, func(r RawRecord) lifeKey {
		return lifeKey{r.PlayerID, r.Life}
	})
	keys := lo.Keys(groups)
	sortKeys(keys)
	for _, k := range keys {
		rounds := groups[k]
		sortByPeriod(rounds)
		recs := lo.Map(rounds, func(r RawRecord, _ int) Record {
			return Record{
				PlayerID:         r.PlayerID,
				Life:             r.Life,
				State:            state.New(r.Period, r.Health, r.Cash()),
				EnjoymentBalance: r.EnjoymentBalance,
			}
		})
		if rounds[0].Periods == 9 {
			nine = append(nine, recs...)
		} else {
			eighteen = append(eighteen, recs...)
		}
	}
	return nine, eighteen
}

// Trajectories groups cleaned records by subject and life, in first-seen
// order, and turns each group into an analyzable trajectory starting from
// start. Groups with fewer than horizon rounds carry ErrShortGroup, and
// groups with more carry ErrLongGroup.
func Trajectories(recs []Record, start state.State, horizon int) []gameanalysis.BatchInput {
	var order []lifeKey
	groups := map[lifeKey][]Record{}
	for _, r := range recs {
		k := lifeKey{r.PlayerID, r.Life}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	out := make([]gameanalysis.BatchInput, 0, len(order))
	for _, k := range order {
		g := groups[k]
		in := gameanalysis.BatchInput{
			ID:         fmt.Sprintf("%s/%d", k.id, k.life),
			Trajectory: gameanalysis.Trajectory{PlayerID: k.id, Life: k.life},
		}
		switch {
		case len(g) < horizon:
			in.LoadError = fmt.Errorf("%w: %s has %d of %d rounds", ErrShortGroup, in.ID, len(g), horizon)
		case len(g) > horizon:
			in.LoadError = fmt.Errorf("%w: %s has %d of %d rounds", ErrLongGroup, in.ID, len(g), horizon)
		}
		if in.LoadError != nil {
			out = append(out, in)
			continue
		}
		states := lo.Map(g, func(r Record, _ int) state.State { return r.State })
		balances := lo.Map(g, func(r Record, _ int) float64 { return r.EnjoymentBalance })
		traj, err := gameanalysis.FromBalances(k.id, k.life, start, states, balances, horizon)
		if err != nil {
			in.LoadError = err
		} else {
			in.Trajectory = traj
		}
		out = append(out, in)
	}
	return out
}
