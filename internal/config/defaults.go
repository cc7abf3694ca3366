package config

import "path/filepath"

// Publish drivers
const (
	DriverFS = "fs"
	DriverS3 = "s3"
)

// DefaultConfig returns configuration with the command-line defaults.
// These defaults are used when no config file exists or when
// config file is missing specific fields.
func DefaultConfig() *Config {
	return &Config{
		Plot: PlotConfig{
			ConfInt:   "95",
			Window:    10,
			LightsOn:  "9:00:00",
			LightsOff: "23:00:00",
			StartDay:  4,
			Stat:      "mean",
			TimeShift: "center",
		},
		Bootstrap: BootstrapConfig{
			Reps: 1000,
			Seed: 42,
		},
		Publish: PublishConfig{
			Driver: DriverFS,
			Dir:    "published",
		},
		History: HistoryConfig{
			Path: filepath.Join(ConfigDirName, "history.db"),
		},
	}
}

// Merge merges loaded config with defaults.
// Values from loaded config take precedence over defaults.
// Returns a new Config with merged values.
func Merge(loaded, defaults *Config) *Config {
	return &Config{
		Plot:      mergePlotConfig(loaded.Plot, defaults.Plot),
		Bootstrap: mergeBootstrapConfig(loaded.Bootstrap, defaults.Bootstrap),
		// Output switches default to off, so the loaded values stand.
		Output:  loaded.Output,
		Publish: mergePublishConfig(loaded.Publish, defaults.Publish),
		History: mergeHistoryConfig(loaded.History, defaults.History),
	}
}

func mergePlotConfig(loaded, defaults PlotConfig) PlotConfig {
	result := loaded

	if result.ConfInt == "" {
		result.ConfInt = defaults.ConfInt
	}
	if result.Window == 0 {
		result.Window = defaults.Window
	}
	if result.LightsOn == "" {
		result.LightsOn = defaults.LightsOn
	}
	if result.LightsOff == "" {
		result.LightsOff = defaults.LightsOff
	}
	// StartDay: zero reads as unset; pass --startday 0 on the command line
	// for experiments starting at day 0.
	if result.StartDay == 0 {
		result.StartDay = defaults.StartDay
	}
	if result.Stat == "" {
		result.Stat = defaults.Stat
	}
	if result.TimeShift == "" {
		result.TimeShift = defaults.TimeShift
	}
	if result.Browser == "" {
		result.Browser = defaults.Browser
	}

	return result
}

func mergeBootstrapConfig(loaded, defaults BootstrapConfig) BootstrapConfig {
	result := loaded

	if result.Reps == 0 {
		result.Reps = defaults.Reps
	}
	if result.Seed == 0 {
		result.Seed = defaults.Seed
	}

	return result
}

func mergePublishConfig(loaded, defaults PublishConfig) PublishConfig {
	result := loaded

	if result.Driver == "" {
		result.Driver = defaults.Driver
	}
	if result.Driver == DriverFS && result.Dir == "" {
		result.Dir = defaults.Dir
	}

	return result
}

func mergeHistoryConfig(loaded, defaults HistoryConfig) HistoryConfig {
	result := loaded

	if result.Path == "" {
		result.Path = defaults.Path
	}

	return result
}

// ValidDrivers lists the valid publish drivers
var ValidDrivers = []string{DriverFS, DriverS3}

// IsValidDriver checks if the given publish driver is valid
func IsValidDriver(driver string) bool {
	for _, valid := range ValidDrivers {
		if driver == valid {
			return true
		}
	}
	return false
}
