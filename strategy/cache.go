package strategy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/healthgame/hcdp/cache"
	"github.com/healthgame/hcdp/config"
)

const CalibrationDir = "calibrations"

// CalibrationCacheLoadFunc loads calibrations for the object cache. Keys look
// like preset:<name> or file:<path>.
func CalibrationCacheLoadFunc(cfg *config.Config, key string) (any, error) {
	kind, name, ok := strings.Cut(key, ":")
	if !ok || name == "" {
		return nil, errors.New("calibrationcacheloadfunc - bad cache key: " + key)
	}
	switch kind {
	case "preset":
		return Preset(name)
	case "file":
		return loadCalibrationFile(cfg, name)
	}
	return nil, errors.New("calibrationcacheloadfunc - bad cache key: " + key)
}

func loadCalibrationFile(cfg *config.Config, path string) (*Calibration, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) && !filepath.IsAbs(path) {
		f, err = os.Open(filepath.Join(cfg.GetString(config.ConfigDataPath), CalibrationDir, path))
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ReadCalibration(f)
	}
	return ReadLegacyParams(f)
}

// Load resolves the calibration named by the config, through the object
// cache, and applies any overrides present in the config. The returned
// calibration is a private copy.
func Load(cfg *config.Config) (*Calibration, error) {
	key := "preset:" + cfg.GetString(config.ConfigCalibration)
	if f := cfg.GetString(config.ConfigCalibrationFile); f != "" {
		key = "file:" + f
	}
	obj, err := cache.Load(cfg, key, CalibrationCacheLoadFunc)
	if err != nil {
		return nil, err
	}
	cal := obj.(*Calibration).Clone()

	if h := cfg.GetInt(config.ConfigHorizon); h > 0 {
		cal.Horizon = h
	}
	if h := cfg.GetInt(config.ConfigStartHealth); h >= 0 {
		cal.Start[1] = h
	}
	if c := cfg.GetInt(config.ConfigStartCash); c >= 0 {
		cal.Start[2] = c
	}
	if p := cfg.GetString(config.ConfigPolicy); p != "" {
		cal.Policy = p
	}
	if p := cfg.GetFloat64(config.ConfigShockProbability); p >= 0 {
		if cal.Shock == nil {
			cal.Shock = &Shock{}
		}
		cal.Shock.Probability = p
	}
	if s := cfg.GetInt(config.ConfigShockSize); s >= 0 {
		if cal.Shock == nil {
			cal.Shock = &Shock{}
		}
		cal.Shock.Size = s
	}
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("calibration %s: %w", cal.Name, err)
	}
	return cal, nil
}

// Clone returns a deep copy.
func (c *Calibration) Clone() *Calibration {
	cp := *c
	cp.Start = slices.Clone(c.Start)
	cp.Degeneration.Rounds = slices.Clone(c.Degeneration.Rounds)
	if c.Shock != nil {
		s := *c.Shock
		cp.Shock = &s
	}
	return &cp
}
