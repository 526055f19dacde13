package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug            = "debug"
	ConfigConfigFile       = "config-file"
	ConfigDataPath         = "data-path"
	ConfigCalibration      = "calibration"
	ConfigCalibrationFile  = "calibration-file"
	ConfigHorizon          = "horizon"
	ConfigStartHealth      = "start-health"
	ConfigStartCash        = "start-cash"
	ConfigPolicy           = "policy"
	ConfigThreads          = "threads"
	ConfigShockProbability = "shock-probability"
	ConfigShockSize        = "shock-size"
	ConfigDBPath           = "db-path"
	ConfigEnumWindow       = "enum-window"
	ConfigBankStep         = "bank-step"
	ConfigBankCap          = "bank-cap"
	ConfigSimIterations    = "sim-iterations"
	ConfigSimSeed          = "sim-seed"
	ConfigCPUProfile       = "cpu-profile"
)

const envPrefix = "HCDP"

// Config embeds a viper instance. Values come, in increasing priority, from
// defaults, an optional YAML config file, HCDP_* environment variables and
// command-line flags.
type Config struct {
	*viper.Viper
}

// DefaultConfig returns a config populated with defaults only.
func DefaultConfig() *Config {
	c := &Config{Viper: viper.New()}
	setDefaults(c.Viper)
	return c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(ConfigDebug, false)
	v.SetDefault(ConfigDataPath, "./data")
	v.SetDefault(ConfigCalibration, "standard9")
	v.SetDefault(ConfigCalibrationFile, "")
	// Zero means "use the calibration's own value".
	v.SetDefault(ConfigHorizon, 0)
	v.SetDefault(ConfigStartHealth, -1)
	v.SetDefault(ConfigStartCash, -1)
	v.SetDefault(ConfigPolicy, "")
	v.SetDefault(ConfigThreads, 1)
	v.SetDefault(ConfigShockProbability, -1.0)
	v.SetDefault(ConfigShockSize, -1)
	v.SetDefault(ConfigDBPath, "")
	v.SetDefault(ConfigEnumWindow, 20)
	v.SetDefault(ConfigBankStep, 10)
	v.SetDefault(ConfigBankCap, 110)
	v.SetDefault(ConfigSimIterations, 1000)
	v.SetDefault(ConfigSimSeed, "")
	v.SetDefault(ConfigCPUProfile, "")
}

// FlagSet returns a flag set declaring every known key. Callers (such as
// the CLI) may add their own flags to it before calling LoadFlags.
func FlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigConfigFile, "", "optional YAML config file")
	fs.String(ConfigDataPath, "./data", "directory holding calibrations and experiment data")
	fs.String(ConfigCalibration, "standard9", "calibration preset name")
	fs.String(ConfigCalibrationFile, "", "calibration YAML or legacy parameter file; overrides the preset")
	fs.Int(ConfigHorizon, 0, "number of rounds (0 = calibration default)")
	fs.Int(ConfigStartHealth, -1, "starting health (-1 = calibration default)")
	fs.Int(ConfigStartCash, -1, "starting cash (-1 = calibration default)")
	fs.String(ConfigPolicy, "", "enumeration policy: plateau or banked (empty = calibration default)")
	fs.Int(ConfigThreads, 1, "worker threads for batch analysis and simulation")
	fs.Float64(ConfigShockProbability, -1, "per-round shock probability (-1 = calibration default)")
	fs.Int(ConfigShockSize, -1, "shock magnitude in health points (-1 = calibration default)")
	fs.String(ConfigDBPath, "", "sqlite database to record runs into")
	fs.Int(ConfigEnumWindow, 20, "life-expenditure window for plateau enumeration")
	fs.Int(ConfigBankStep, 10, "bank increment for banked enumeration")
	fs.Int(ConfigBankCap, 110, "largest banked amount for banked enumeration")
	fs.Int(ConfigSimIterations, 1000, "Monte-Carlo iterations")
	fs.String(ConfigSimSeed, "", "Monte-Carlo seed (empty = random)")
	fs.String(ConfigCPUProfile, "", "write a CPU profile to this file")
	return fs
}

// Load parses args with the default flag set.
func (c *Config) Load(args []string) error {
	fs := FlagSet("hcdp")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.LoadFlags(fs)
}

// LoadFlags binds an already-parsed flag set, then reads the environment and
// an optional config file.
func (c *Config) LoadFlags(fs *pflag.FlagSet) error {
	c.Viper = viper.New()
	setDefaults(c.Viper)
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	c.SetEnvPrefix(envPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	if cf := c.GetString(ConfigConfigFile); cf != "" {
		c.SetConfigFile(cf)
		c.SetConfigType("yaml")
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", cf, err)
		}
	}
	return nil
}

// SanitizedSettings returns the settings with anything that looks like a
// credential masked, for logging.
func (c *Config) SanitizedSettings() map[string]any {
	settings := c.AllSettings()
	for k := range settings {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "token") || strings.Contains(lk, "password") ||
			strings.Contains(lk, "secret") {
			settings[k] = "********"
		}
	}
	return settings
}

// AdjustRelativePaths rewrites relative data paths to live under basePath,
// unless they already resolve from the working directory.
func (c *Config) AdjustRelativePaths(basePath string) {
	for _, key := range []string{ConfigDataPath, ConfigCalibrationFile} {
		p := c.GetString(key)
		if p == "" || filepath.IsAbs(p) {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			continue
		}
		adjusted := filepath.Join(basePath, p)
		log.Debug().Str("key", key).Str("from", p).Str("to", adjusted).Msg("adjusted-relative-path")
		c.Set(key, adjusted)
	}
}
