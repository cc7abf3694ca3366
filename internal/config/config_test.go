package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Plot.ConfInt != "95" {
		t.Errorf("expected confint 95, got %s", cfg.Plot.ConfInt)
	}
	if cfg.Plot.Window != 10 {
		t.Errorf("expected window 10, got %d", cfg.Plot.Window)
	}
	if cfg.Plot.LightsOn != "9:00:00" || cfg.Plot.LightsOff != "23:00:00" {
		t.Errorf("expected lights 9:00:00-23:00:00, got %s-%s", cfg.Plot.LightsOn, cfg.Plot.LightsOff)
	}
	if cfg.Plot.StartDay != 4 {
		t.Errorf("expected start day 4, got %d", cfg.Plot.StartDay)
	}
	if cfg.Plot.Stat != "mean" {
		t.Errorf("expected stat mean, got %s", cfg.Plot.Stat)
	}
	if cfg.Plot.TimeShift != "center" {
		t.Errorf("expected timeshift center, got %s", cfg.Plot.TimeShift)
	}
	if cfg.Bootstrap.Reps != 1000 {
		t.Errorf("expected 1000 reps, got %d", cfg.Bootstrap.Reps)
	}
	if cfg.Publish.Driver != DriverFS {
		t.Errorf("expected fs publish driver, got %s", cfg.Publish.Driver)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestIsValidDriver(t *testing.T) {
	tests := []struct {
		driver string
		valid  bool
	}{
		{"fs", true},
		{"s3", true},
		{"gcs", false},
		{"", false},
		{"S3", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			if got := IsValidDriver(tt.driver); got != tt.valid {
				t.Errorf("IsValidDriver(%q) = %v, want %v", tt.driver, got, tt.valid)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "confint disabled",
			modify:  func(c *Config) { c.Plot.ConfInt = "0" },
			wantErr: false,
		},
		{
			name:    "confint too high",
			modify:  func(c *Config) { c.Plot.ConfInt = "150" },
			wantErr: true,
		},
		{
			name:    "zero window",
			modify:  func(c *Config) { c.Plot.Window = 0 },
			wantErr: true,
		},
		{
			name:    "bad lights on",
			modify:  func(c *Config) { c.Plot.LightsOn = "9am" },
			wantErr: true,
		},
		{
			name:    "bad lights off",
			modify:  func(c *Config) { c.Plot.LightsOff = "24:00" },
			wantErr: true,
		},
		{
			name:    "stat none",
			modify:  func(c *Config) { c.Plot.Stat = "none" },
			wantErr: false,
		},
		{
			name:    "unknown stat",
			modify:  func(c *Config) { c.Plot.Stat = "mode" },
			wantErr: true,
		},
		{
			name:    "unknown timeshift",
			modify:  func(c *Config) { c.Plot.TimeShift = "middle" },
			wantErr: true,
		},
		{
			name:    "zero reps",
			modify:  func(c *Config) { c.Bootstrap.Reps = 0 },
			wantErr: true,
		},
		{
			name:    "unknown driver",
			modify:  func(c *Config) { c.Publish.Driver = "ftp" },
			wantErr: true,
		},
		{
			name:    "s3 without bucket",
			modify:  func(c *Config) { c.Publish.Driver = DriverS3 },
			wantErr: true,
		},
		{
			name: "s3 with bucket",
			modify: func(c *Config) {
				c.Publish.Driver = DriverS3
				c.Publish.Bucket = "fish-plots"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	defaults := DefaultConfig()

	t.Run("empty loaded uses all defaults", func(t *testing.T) {
		merged := Merge(&Config{}, defaults)

		if merged.Plot != defaults.Plot {
			t.Errorf("expected plot defaults %+v, got %+v", defaults.Plot, merged.Plot)
		}
		if merged.Bootstrap != defaults.Bootstrap {
			t.Errorf("expected bootstrap defaults %+v, got %+v", defaults.Bootstrap, merged.Bootstrap)
		}
		if merged.History.Path != defaults.History.Path {
			t.Errorf("expected history path %s, got %s", defaults.History.Path, merged.History.Path)
		}
	})

	t.Run("loaded values take precedence", func(t *testing.T) {
		loaded := &Config{
			Plot: PlotConfig{
				Window: 30,
				Stat:   "median",
			},
			Output: OutputConfig{SVG: true},
			Publish: PublishConfig{
				Driver: DriverS3,
				Bucket: "fish-plots",
			},
		}
		merged := Merge(loaded, defaults)

		if merged.Plot.Window != 30 {
			t.Errorf("expected window 30, got %d", merged.Plot.Window)
		}
		if merged.Plot.Stat != "median" {
			t.Errorf("expected stat median, got %s", merged.Plot.Stat)
		}
		if !merged.Output.SVG {
			t.Error("expected svg output to stay enabled")
		}
		if merged.Publish.Dir != "" {
			t.Errorf("expected no publish dir for s3, got %s", merged.Publish.Dir)
		}

		// Unset values should use defaults
		if merged.Plot.ConfInt != defaults.Plot.ConfInt {
			t.Errorf("expected confint %s, got %s", defaults.Plot.ConfInt, merged.Plot.ConfInt)
		}
		if merged.Plot.StartDay != defaults.Plot.StartDay {
			t.Errorf("expected start day %d, got %d", defaults.Plot.StartDay, merged.Plot.StartDay)
		}
	})
}

func TestFindConfigDir(t *testing.T) {
	tmpDir := t.TempDir()

	projectDir := filepath.Join(tmpDir, "project")
	subDir := filepath.Join(projectDir, "subdir")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	t.Run("no config dir returns error", func(t *testing.T) {
		_, err := FindConfigDir(subDir)
		if err == nil {
			t.Error("expected error when no .fishviz directory exists")
		}
	})

	configDir := filepath.Join(projectDir, ConfigDirName)
	if err := os.Mkdir(configDir, 0755); err != nil {
		t.Fatal(err)
	}

	t.Run("finds config dir in current directory", func(t *testing.T) {
		found, err := FindConfigDir(projectDir)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if found != configDir {
			t.Errorf("expected %s, got %s", configDir, found)
		}
	})

	t.Run("finds config dir in parent directory", func(t *testing.T) {
		found, err := FindConfigDir(subDir)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if found != configDir {
			t.Errorf("expected %s, got %s", configDir, found)
		}
	})
}

func TestEnsureConfigDir(t *testing.T) {
	tmpDir := t.TempDir()

	dir, err := EnsureConfigDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(tmpDir, ConfigDirName); dir != want {
		t.Errorf("expected %s, got %s", want, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("config directory not created: %v", err)
	}

	// Calling again returns the same directory.
	again, err := EnsureConfigDir(tmpDir)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if again != dir {
		t.Errorf("expected %s, got %s", dir, again)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("loads valid config file", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		content := `
plot:
  window: 6
  lights_on: "8:00"
  stat: median
bootstrap:
  reps: 200
output:
  svg: true
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadFromPath(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Plot.Window != 6 {
			t.Errorf("expected window 6, got %d", cfg.Plot.Window)
		}
		if cfg.Plot.LightsOn != "8:00" {
			t.Errorf("expected lights on 8:00, got %s", cfg.Plot.LightsOn)
		}
		if cfg.Bootstrap.Reps != 200 {
			t.Errorf("expected 200 reps, got %d", cfg.Bootstrap.Reps)
		}
		if !cfg.Output.SVG {
			t.Error("expected svg output enabled")
		}

		// Check defaults were applied for missing values
		if cfg.Plot.LightsOff != "23:00:00" {
			t.Errorf("expected default lights off, got %s", cfg.Plot.LightsOff)
		}
		if cfg.Bootstrap.Seed != 42 {
			t.Errorf("expected default seed 42, got %d", cfg.Bootstrap.Seed)
		}
	})

	t.Run("returns defaults for non-existent file", func(t *testing.T) {
		cfg, err := LoadFromPath(filepath.Join(tmpDir, "nonexistent.yaml"))
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if cfg.Plot != DefaultConfig().Plot {
			t.Errorf("expected default plot config, got %+v", cfg.Plot)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "invalid.yaml")
		if err := os.WriteFile(configPath, []byte("invalid: yaml: content"), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadFromPath(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("returns error for invalid config values", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "bad-values.yaml")
		content := `
plot:
  timeshift: sideways
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := LoadFromPath(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("returns defaults when no config dir exists", func(t *testing.T) {
		cfg, err := Load(tmpDir)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if cfg.Plot != DefaultConfig().Plot {
			t.Error("expected default config")
		}
		if cfg.Root != "" || cfg.History.Path != DefaultConfig().History.Path {
			t.Errorf("expected unrooted defaults, got root %q history %q", cfg.Root, cfg.History.Path)
		}
	})

	t.Run("loads config from parent directory", func(t *testing.T) {
		if _, err := SaveDefault(tmpDir); err != nil {
			t.Fatal(err)
		}
		configPath := filepath.Join(tmpDir, ConfigDirName, ConfigFileName)
		if err := os.WriteFile(configPath, []byte("plot:\n  window: 3\n"), 0644); err != nil {
			t.Fatal(err)
		}
		subDir := filepath.Join(tmpDir, "runs", "day4")
		if err := os.MkdirAll(subDir, 0755); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(subDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Plot.Window != 3 {
			t.Errorf("expected window 3, got %d", cfg.Plot.Window)
		}
		if cfg.Root != tmpDir {
			t.Errorf("expected root %s, got %s", tmpDir, cfg.Root)
		}
		if want := filepath.Join(tmpDir, ConfigDirName, "history.db"); cfg.History.Path != want {
			t.Errorf("expected history path %s, got %s", want, cfg.History.Path)
		}
		if want := filepath.Join(tmpDir, "published"); cfg.Publish.Dir != want {
			t.Errorf("expected publish dir %s, got %s", want, cfg.Publish.Dir)
		}
	})

	t.Run("keeps absolute paths", func(t *testing.T) {
		elsewhere := t.TempDir()
		configPath := filepath.Join(tmpDir, ConfigDirName, ConfigFileName)
		body := "history:\n  path: " + filepath.Join(elsewhere, "h.db") + "\npublish:\n  driver: fs\n  dir: " + elsewhere + "\n"
		if err := os.WriteFile(configPath, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(filepath.Join(tmpDir, "runs"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := filepath.Join(elsewhere, "h.db"); cfg.History.Path != want {
			t.Errorf("expected history path %s, got %s", want, cfg.History.Path)
		}
		if cfg.Publish.Dir != elsewhere {
			t.Errorf("expected publish dir %s, got %s", elsewhere, cfg.Publish.Dir)
		}
	})
}

func TestLoadFromPathOutsideConfigDir(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "lab.yaml")
	if err := os.WriteFile(path, []byte("history:\n  path: runs.db\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(tmpDir, "runs.db"); cfg.History.Path != want {
		t.Errorf("expected history path %s, got %s", want, cfg.History.Path)
	}
}

func TestSaveDefault(t *testing.T) {
	tmpDir := t.TempDir()

	path, err := SaveDefault(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# fishviz configuration") {
		t.Error("expected header comment")
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("saved defaults do not load: %v", err)
	}
	if cfg.Plot != DefaultConfig().Plot {
		t.Errorf("expected saved defaults to round trip, got %+v", cfg.Plot)
	}

	if _, err := SaveDefault(tmpDir); err == nil {
		t.Error("expected error when config already exists")
	}
}
