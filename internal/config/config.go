package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"anchorlink/internal/blockid"

	"github.com/spf13/viper"
)

type Config struct {
	Root             string   `json:"root" mapstructure:"root"`
	Extensions       []string `json:"extensions" mapstructure:"extensions"`
	DefaultExtension string   `json:"default_extension" mapstructure:"default_extension"`
	BlockIDLength    int      `json:"block_id_length" mapstructure:"block_id_length"`
	IgnoreDirs       []string `json:"ignore_dirs" mapstructure:"ignore_dirs"`
	Watch            bool     `json:"watch" mapstructure:"watch"`
	IndexCache       bool     `json:"index_cache" mapstructure:"index_cache"`
	StateDir         string   `json:"state_dir" mapstructure:"state_dir"`
	LogFile          string   `json:"log_file" mapstructure:"log_file"`
	Verbose          int      `json:"verbose" mapstructure:"verbose"`
}

func defaults() map[string]any {
	return map[string]any{
		"root":              ".",
		"extensions":        []string{".md"},
		"default_extension": ".md",
		"block_id_length":   blockid.DefaultLength,
		"ignore_dirs":       []string{".git", ".obsidian", ".trash"},
		"watch":             true,
		"index_cache":       true,
		"state_dir":         StateHome(),
		"log_file":          "",
		"verbose":           0,
	}
}

// Init registers defaults, config file locations and the environment on
// v. A missing config file is not an error.
func Init(v *viper.Viper) error {
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName("anchorlink")
	v.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "anchorlink"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("ANCHORLINK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// FromViper decodes the settings held by v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Overlay returns base with the fields present in v replaced, v being
// any JSON-shaped value such as LSP initializationOptions.
func Overlay(base Config, v any) (Config, error) {
	if v == nil {
		return base, nil
	}
	cfg := base
	cfg.Extensions = append([]string(nil), base.Extensions...)
	cfg.IgnoreDirs = append([]string(nil), base.IgnoreDirs...)

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}

	// only fields present in src will overwrite.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate normalizes extensions and checks ranges.
func (c *Config) Validate() error {
	if len(c.Extensions) == 0 {
		return fmt.Errorf("config: no note extensions")
	}
	for i, ext := range c.Extensions {
		c.Extensions[i] = normalizeExt(ext)
	}
	c.DefaultExtension = normalizeExt(c.DefaultExtension)
	if c.DefaultExtension == "" {
		c.DefaultExtension = c.Extensions[0]
	}
	if c.BlockIDLength < blockid.MinLength || c.BlockIDLength > blockid.MaxLength {
		return fmt.Errorf("config: block_id_length must be within %d..%d, got %d",
			blockid.MinLength, blockid.MaxLength, c.BlockIDLength)
	}
	return nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// StateHome is $XDG_STATE_HOME/anchorlink, falling back to
// ~/.local/state/anchorlink.
func StateHome() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "anchorlink")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "anchorlink")
	}
	return filepath.Join(home, ".local", "state", "anchorlink")
}

// CachePath is the index database of the vault at root.
func (c Config) CachePath(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	name := strings.Trim(strings.NewReplacer("/", "%", "\\", "%", ":", "%").Replace(abs), "%")
	if name == "" {
		name = "root"
	}
	return filepath.Join(c.StateDir, name, "index.db")
}
