package dataloaders

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	ErrMissingColumn = errors.New("raw data is missing a column")
	ErrBadValue      = errors.New("raw data has a malformed value")
)

// Columns read from the raw experiment export.
const (
	ColID               = "newuniqueid"
	ColLife             = "life"
	ColPeriod           = "period"
	ColHealth           = "health"
	ColEnjoymentBalance = "enjoymentbalance"
	ColAccountBalance   = "accountbalance"
	ColHealthInvestment = "healthinvestment"
	ColEnjoyInvestment  = "enjoymentinvestment"
	ColFlat             = "flat"
	ColSocialLife       = "social.life"
	ColSocialHealth     = "social.health"
	ColRetirement       = "retirement"
	ColPeriods          = "periods"
	ColHarvested        = "amountharvested"
)

var requiredColumns = []string{
	ColID, ColLife, ColPeriod, ColHealth, ColEnjoymentBalance, ColAccountBalance,
	ColHealthInvestment, ColEnjoyInvestment, ColFlat, ColSocialLife,
	ColSocialHealth, ColRetirement, ColPeriods,
}

// RawRecord is one round of one life of one subject.
type RawRecord struct {
	PlayerID            string
	Life                int
	Period              int
	Health              int
	EnjoymentBalance    float64
	AccountBalance      float64
	HealthInvestment    float64
	EnjoymentInvestment float64
	Harvested           float64

	Flat         int
	SocialLife   int
	SocialHealth int
	Retirement   int
	Periods      int
}

// Cash is what the subject kept after this round's investments, rounded to
// the nearest whole unit so float residue such as 31.999999999999996 counts as 32.
func (r RawRecord) Cash() int {
	return int(math.Round(r.AccountBalance - r.HealthInvestment - r.EnjoymentInvestment))
}

// ReadRaw reads the raw export. comma is the field separator; header names
// may be quoted.
func ReadRaw(r io.Reader, comma rune) ([]RawRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.Trim(strings.TrimSpace(h), `"`)] = i
	}
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	var out []RawRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		p := rowParser{row: row, idx: idx, line: line}
		rec := RawRecord{
			PlayerID:            p.str(ColID),
			Life:                p.int(ColLife),
			Period:              p.int(ColPeriod),
			Health:              p.int(ColHealth),
			EnjoymentBalance:    p.float(ColEnjoymentBalance),
			AccountBalance:      p.float(ColAccountBalance),
			HealthInvestment:    p.float(ColHealthInvestment),
			EnjoymentInvestment: p.float(ColEnjoyInvestment),
			Flat:                p.int(ColFlat),
			SocialLife:          p.int(ColSocialLife),
			SocialHealth:        p.int(ColSocialHealth),
			Retirement:          p.int(ColRetirement),
			Periods:             p.int(ColPeriods),
		}
		if _, ok := idx[ColHarvested]; ok {
			rec.Harvested = p.float(ColHarvested)
		}
		if p.err != nil {
			return nil, p.err
		}
		out = append(out, rec)
	}
	return out, nil
}

// rowParser keeps the first conversion error of a row.
type rowParser struct {
	row  []string
	idx  map[string]int
	line int
	err  error
}

func (p *rowParser) str(col string) string {
	i := p.idx[col]
	if i >= len(p.row) {
		if p.err == nil {
			p.err = fmt.Errorf("%w: line %d has no %s", ErrBadValue, p.line, col)
		}
		return ""
	}
	return strings.Trim(strings.TrimSpace(p.row[i]), `"`)
}

func (p *rowParser) float(col string) float64 {
	s := p.str(col)
	if p.err != nil {
		return 0
	}
	if s == "" || s == "NA" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = fmt.Errorf("%w: line %d column %s: %q", ErrBadValue, p.line, col, s)
		return 0
	}
	return f
}

func (p *rowParser) int(col string) int {
	f := p.float(col)
	if f != math.Trunc(f) && p.err == nil {
		p.err = fmt.Errorf("%w: line %d column %s is not an integer", ErrBadValue, p.line, col)
	}
	return int(f)
}
