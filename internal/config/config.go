package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Dir and File locate the config inside a workspace.
const (
	Dir  = ".ament"
	File = "gradle.toml"
)

type GradleConfig struct {
	Args           []string `toml:"args"`
	AndroidVariant string   `toml:"android_variant"`
	Home           string   `toml:"home"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type DaemonConfig struct {
	Listen string `toml:"listen"`
}

type Config struct {
	Gradle GradleConfig `toml:"gradle"`
	Store  StoreConfig  `toml:"store"`
	Daemon DaemonConfig `toml:"daemon"`
}

func Defaults() Config {
	return Config{
		Gradle: GradleConfig{
			AndroidVariant: "release",
		},
		Store: StoreConfig{
			Path: "ament_gradle.db",
		},
		Daemon: DaemonConfig{
			Listen: "unix:///tmp/ament-gradle.sock",
		},
	}
}

// Path returns the config file location for a workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, Dir, File)
}

// Load reads the workspace config, falling back to defaults when the file
// does not exist. A relative store path is resolved against the workspace.
func Load(workspace string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(Path(workspace))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, err
		}
	}

	if cfg.Store.Path != "" && cfg.Store.Path != ":memory:" && !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(workspace, cfg.Store.Path)
	}
	return &cfg, nil
}

// ApplyEnv lets AMENT_GRADLE_DB and AMENT_GRADLE_LISTEN override the file.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("AMENT_GRADLE_DB"); v != "" {
		c.Store.Path = v
	}
	if v := getenv("AMENT_GRADLE_LISTEN"); v != "" {
		c.Daemon.Listen = v
	}
}
