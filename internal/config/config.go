// Package config provides configuration types, defaults and loading for
// blueprint-mode.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mat-xc/blueprint-mode/internal/indent"
	"github.com/mat-xc/blueprint-mode/internal/log"
)

// LocalFile is looked up in the working directory before the user config.
const LocalFile = ".blueprint-mode.yaml"

// EnvPrefix prefixes environment overrides, e.g. BLUEPRINT_MODE_INDENT_TAB_WIDTH.
const EnvPrefix = "BLUEPRINT_MODE"

// ErrInvalidTabWidth is returned when the configured tab width is not positive.
var ErrInvalidTabWidth = errors.New("tab width must be positive")

// Config holds all configuration options for blueprint-mode.
type Config struct {
	Indent  IndentConfig  `mapstructure:"indent" yaml:"indent"`
	Preview PreviewConfig `mapstructure:"preview" yaml:"preview"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// IndentConfig controls the indentation engine.
type IndentConfig struct {
	TabWidth int  `mapstructure:"tab_width" yaml:"tab_width"`
	UseTabs  bool `mapstructure:"use_tabs" yaml:"use_tabs"`
}

// PreviewConfig controls the live preview server.
type PreviewConfig struct {
	Addr  string `mapstructure:"addr" yaml:"addr"`
	Style string `mapstructure:"style" yaml:"style"` // chroma style name
}

// LogConfig controls the log sink. An empty path logs to stderr.
type LogConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`
	Level string `mapstructure:"level" yaml:"level"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		Indent:  IndentConfig{TabWidth: indent.DefaultTabWidth},
		Preview: PreviewConfig{Addr: "127.0.0.1:7778", Style: "github"},
		Log:     LogConfig{Level: "info"},
	}
}

// Validate reports configuration values the engine cannot work with.
func (c Config) Validate() error {
	if c.Indent.TabWidth <= 0 {
		return fmt.Errorf("indent.tab_width=%d: %w", c.Indent.TabWidth, ErrInvalidTabWidth)
	}
	return nil
}

// IndentConfig converts the indent section to the engine's configuration.
func (c Config) IndentConfig() indent.Config {
	return indent.Config{TabWidth: c.Indent.TabWidth, UseTabs: c.Indent.UseTabs}
}

// Load reads configuration from path, or when path is empty from
// .blueprint-mode.yaml in the working directory, falling back to
// ~/.config/blueprint-mode/config.yaml. A missing file in the search path
// is not an error. Environment variables override file values.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case path != "":
		v.SetConfigFile(path)
	case fileExists(LocalFile):
		v.SetConfigFile(LocalFile)
	default:
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "blueprint-mode"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	log.Debug(log.CatConfig, "config loaded", "file", v.ConfigFileUsed(), "tab_width", cfg.Indent.TabWidth)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("indent.tab_width", d.Indent.TabWidth)
	v.SetDefault("indent.use_tabs", d.Indent.UseTabs)
	v.SetDefault("preview.addr", d.Preview.Addr)
	v.SetDefault("preview.style", d.Preview.Style)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.level", d.Log.Level)
}

// WriteDefault writes the default configuration to path as YAML, creating
// parent directories. An existing file is never overwritten.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // G304: user-chosen config path
	if err != nil {
		return fmt.Errorf("create config %q: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString("# blueprint-mode configuration\n"); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write config %q: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
