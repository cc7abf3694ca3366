package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zebrafishlab/fishviz/internal/activity"
	"github.com/zebrafishlab/fishviz/internal/options"
	"github.com/zebrafishlab/fishviz/internal/summary"
	"github.com/zebrafishlab/fishviz/internal/visualize"
)

// ConfigFileName is the name of the fishviz configuration file
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the fishviz configuration directory
const ConfigDirName = ".fishviz"

// Config holds all fishviz configuration
type Config struct {
	Plot      PlotConfig      `yaml:"plot" json:"plot"`
	Bootstrap BootstrapConfig `yaml:"bootstrap" json:"bootstrap"`
	Output    OutputConfig    `yaml:"output" json:"output"`
	Publish   PublishConfig   `yaml:"publish" json:"publish"`
	History   HistoryConfig   `yaml:"history" json:"history"`

	// Root is the project directory relative paths resolve against. It is
	// empty when no config file was read.
	Root string `yaml:"-" json:"-"`
}

// PlotConfig holds defaults for the plot flags
type PlotConfig struct {
	ConfInt   string `yaml:"confint" json:"confint"`
	Window    int    `yaml:"window" json:"window"`
	LightsOn  string `yaml:"lights_on" json:"lights_on"`
	LightsOff string `yaml:"lights_off" json:"lights_off"`
	StartDay  int    `yaml:"start_day" json:"start_day"`
	Stat      string `yaml:"stat" json:"stat"`
	TimeShift string `yaml:"timeshift" json:"timeshift"`
	Browser   string `yaml:"browser,omitempty" json:"browser,omitempty"`
}

// BootstrapConfig controls the confidence band bootstrap
type BootstrapConfig struct {
	Reps int    `yaml:"reps" json:"reps"`
	Seed uint64 `yaml:"seed" json:"seed"`
}

// OutputConfig holds defaults for optional outputs
type OutputConfig struct {
	SVG      bool `yaml:"svg" json:"svg"`
	XLSX     bool `yaml:"xlsx" json:"xlsx"`
	Headless bool `yaml:"headless" json:"headless"`
}

// PublishConfig says where --publish copies outputs to
type PublishConfig struct {
	Driver    string `yaml:"driver" json:"driver"`
	Dir       string `yaml:"dir,omitempty" json:"dir,omitempty"`
	Bucket    string `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Prefix    string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty" json:"path_style,omitempty"`
}

// HistoryConfig controls the run history database
type HistoryConfig struct {
	Disabled bool   `yaml:"disabled" json:"disabled"`
	Path     string `yaml:"path" json:"path"`
}

// ErrConfigNotFound is returned when no config file can be found
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from .fishviz/config.yaml, falling back to defaults.
// It searches for the config directory starting from workDir and walking up
// the directory tree.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		return DefaultConfig(), nil
	}

	return LoadFromPath(filepath.Join(configDir, ConfigFileName))
}

// LoadFromPath reads config from a specific path.
// Merges loaded config with defaults and validates the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	merged := Merge(loaded, DefaultConfig())
	if err := Validate(merged); err != nil {
		return nil, err
	}
	merged.Rebase(projectRoot(path))
	return merged, nil
}

// Rebase sets Root and joins the relative history and publish paths onto it.
func (c *Config) Rebase(root string) {
	c.Root = root
	if c.History.Path != "" && !filepath.IsAbs(c.History.Path) {
		c.History.Path = filepath.Join(root, c.History.Path)
	}
	if c.Publish.Dir != "" && !filepath.IsAbs(c.Publish.Dir) {
		c.Publish.Dir = filepath.Join(root, c.Publish.Dir)
	}
}

// projectRoot is the directory holding .fishviz for a file inside it, or
// the file's own directory otherwise.
func projectRoot(configFile string) string {
	dir := filepath.Dir(configFile)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if filepath.Base(dir) == ConfigDirName {
		return filepath.Dir(dir)
	}
	return dir
}

// FindConfigDir locates the .fishviz directory by walking up from startDir.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		info, err := os.Stat(configDir)
		if err == nil && info.IsDir() {
			return configDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// EnsureConfigDir creates the .fishviz directory if it doesn't exist.
// Returns the path to the .fishviz directory.
func EnsureConfigDir(workDir string) (string, error) {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDirName)
	info, err := os.Stat(configDir)
	if err == nil {
		if info.IsDir() {
			return configDir, nil
		}
		return "", fmt.Errorf("%s exists but is not a directory", configDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return configDir, nil
}

// Validate checks that config values are valid.
func Validate(cfg *Config) error {
	if _, _, err := options.Percentiles(cfg.Plot.ConfInt); err != nil {
		return fmt.Errorf("%w: confint: %v", ErrInvalidConfig, err)
	}

	if cfg.Plot.Window < 1 {
		return fmt.Errorf("%w: window must be at least 1, got %d",
			ErrInvalidConfig, cfg.Plot.Window)
	}

	for name, clock := range map[string]string{"lights_on": cfg.Plot.LightsOn, "lights_off": cfg.Plot.LightsOff} {
		if _, err := activity.ParseClock(clock); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
	}

	if _, err := summary.ParseStat(cfg.Plot.Stat); err != nil {
		return fmt.Errorf("%w: stat must be one of %v or none, got %q",
			ErrInvalidConfig, summary.Stats, cfg.Plot.Stat)
	}

	if _, err := visualize.ParseTimeShift(cfg.Plot.TimeShift); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if cfg.Bootstrap.Reps <= 0 {
		return fmt.Errorf("%w: reps must be positive, got %d",
			ErrInvalidConfig, cfg.Bootstrap.Reps)
	}

	if !IsValidDriver(cfg.Publish.Driver) {
		return fmt.Errorf("%w: publish driver must be one of %v, got %q",
			ErrInvalidConfig, ValidDrivers, cfg.Publish.Driver)
	}

	if cfg.Publish.Driver == DriverS3 && cfg.Publish.Bucket == "" {
		return fmt.Errorf("%w: publish driver s3 needs a bucket", ErrInvalidConfig)
	}

	return nil
}

// SaveDefault writes the default configuration to .fishviz/config.yaml in workDir.
// Creates the .fishviz directory if it doesn't exist.
func SaveDefault(workDir string) (string, error) {
	configDir, err := EnsureConfigDir(workDir)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	header := "# fishviz configuration\n# Command-line flags override these values.\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return configPath, nil
}
