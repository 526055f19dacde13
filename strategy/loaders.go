package strategy

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// legacyHeaderLines is the number of free-form description lines at the top
// of a legacy parameter file.
const legacyHeaderLines = 10

// ReadCalibration decodes a YAML calibration document.
func ReadCalibration(r io.Reader) (*Calibration, error) {
	cal := &Calibration{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cal); err != nil {
		return nil, fmt.Errorf("decoding calibration: %w", err)
	}
	if cal.Policy == "" {
		cal.Policy = PolicyPlateau
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	log.Debug().Str("name", cal.Name).Int("horizon", cal.Horizon).Msg("loaded-calibration")
	return cal, nil
}

// WriteCalibration encodes a calibration as YAML.
func WriteCalibration(w io.Writer, cal *Calibration) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cal); err != nil {
		return err
	}
	return enc.Close()
}

// ReadLegacyParams reads the line-oriented parameter files used in the
// laboratory sessions. After a ten-line header, the first token of each line
// is, in order: the start state as a JSON array, the number of rounds, then
// the sigmoid regeneration (gamma, sigma, r) and exponential enjoyment
// (alpha, beta, mu, c) coefficients. Degeneration and harvest follow the
// 9-round or 18-round laboratory settings depending on the number of rounds.
func ReadLegacyParams(r io.Reader) (*Calibration, error) {
	sc := bufio.NewScanner(r)
	var tokens []string
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo <= legacyHeaderLines {
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		tokens = append(tokens, fields[0])
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(tokens) < 9 {
		return nil, fmt.Errorf("%w: expected 9 values after header, got %d", ErrMalformedParams, len(tokens))
	}

	var start []int
	if err := json.Unmarshal([]byte(tokens[0]), &start); err != nil {
		return nil, fmt.Errorf("%w: start state %q: %v", ErrMalformedParams, tokens[0], err)
	}
	nums := make([]float64, 8)
	for i, tok := range tokens[1:9] {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d %q: %v", ErrMalformedParams, i+2, tok, err)
		}
		nums[i] = f
	}

	cal := &Calibration{
		Name:         "legacy",
		Horizon:      int(nums[0]),
		Start:        start,
		Policy:       PolicyPlateau,
		Regeneration: Params{Kind: "sigmoid", Gamma: nums[1], Sigma: nums[2], R: nums[3]},
		Enjoyment:    Params{Kind: "exponential", Alpha: nums[4], Beta: nums[5], Mu: nums[6], C: nums[7]},
	}
	if cal.Horizon <= 9 {
		cal.Degeneration = nineRoundDegeneration
		cal.Harvest = nineRoundHarvest
	} else {
		cal.Degeneration = eighteenRoundDegeneration
		cal.Harvest = eighteenRoundHarvest
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return cal, nil
}
