package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourcesConfig locates the raw inputs of the corpus.
type SourcesConfig struct {
	HeorotURL string `yaml:"heorot_url"`
	// BilingualPath is an optional local copy of the edition's HTML. When
	// set it is read instead of fetching HeorotURL.
	BilingualPath     string `yaml:"bilingual_path,omitempty"`
	TokensPath        string `yaml:"tokens_path"`
	DictionaryPath    string `yaml:"dictionary_path"`
	AbbreviationsPath string `yaml:"abbreviations_path"`
}

// SummaryConfig holds summary query settings.
type SummaryConfig struct {
	SampleSize int `yaml:"sample_size"`
}

// ServeConfig holds HTTP query host settings.
// An empty AllowedOrigins is kept as `[]` in config.yaml and allows no
// cross-origin callers; "*" allows all.
type ServeConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	SecondsPerLine int `yaml:"seconds_per_line"`
}

// Config holds beodata configuration.
type Config struct {
	Version string        `yaml:"version"`
	Sources SourcesConfig `yaml:"sources"`
	Summary SummaryConfig `yaml:"summary,omitempty"`
	Serve   ServeConfig   `yaml:"serve,omitempty"`
	Export  ExportConfig  `yaml:"export,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults. Relative source
// paths are resolved against BEODATA_HOME.
func DefaultConfig() Config {
	return Config{
		Version: "1",
		Sources: SourcesConfig{
			HeorotURL:         "https://heorot.dk/beowulf-rede-text.html",
			TokensPath:        filepath.Join("assets", "brunetti-length.txt"),
			DictionaryPath:    filepath.Join("assets", "oe_bt.csv"),
			AbbreviationsPath: filepath.Join("assets", "bt_abbreviations.xml"),
		},
		Summary: SummaryConfig{
			SampleSize: 5,
		},
		Serve: ServeConfig{
			Addr:           "127.0.0.1:8642",
			AllowedOrigins: []string{"*"},
		},
		Export: ExportConfig{
			SecondsPerLine: 4,
		},
	}
}

// Store represents a loaded BEODATA_HOME.
type Store struct {
	Home   string
	Config Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// Subdirectories of BEODATA_HOME.
var homeDirs = []string{"cache", "assets", "exports"}

// configKeys lists the keys SetConfigValue and ConfigValue accept.
var configKeys = []string{
	"sources.heorot_url",
	"sources.bilingual_path",
	"sources.tokens_path",
	"sources.dictionary_path",
	"sources.abbreviations_path",
	"summary.sample_size",
	"serve.addr",
	"serve.allowed_origins",
	"export.seconds_per_line",
}

// Home returns the BEODATA_HOME path, respecting the BEODATA_HOME env var.
func Home() string {
	if h := os.Getenv("BEODATA_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".beodata")
	}
	return filepath.Join(home, ".beodata")
}

// Init creates the BEODATA_HOME directory structure.
func Init(home string, force bool) error {
	if _, err := os.Stat(home); err == nil && !force {
		return fmt.Errorf("BEODATA_HOME already exists at %s (use --force to reinitialize)", home)
	}

	dirs := []string{home}
	for _, d := range homeDirs {
		dirs = append(dirs, filepath.Join(home, d))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}

	return writeConfig(home, DefaultConfig())
}

func writeConfig(home string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	cfgPath := filepath.Join(home, "config.yaml")
	if err := os.WriteFile(cfgPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Load reads and validates an existing BEODATA_HOME.
// Missing config fields are filled from defaults.
func Load(home string) (*Store, error) {
	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read BEODATA_HOME config at %s: %w", cfgPath, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	return &Store{Home: home, Config: cfg}, nil
}

// SaveConfig writes the current config to config.yaml.
func (s *Store) SaveConfig() error {
	return writeConfig(s.Home, s.Config)
}

func positiveInt(key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

// SetConfigValue sets a config value by dot-path key (e.g. "serve.addr").
func (s *Store) SetConfigValue(key, value string) error {
	switch key {
	case "sources.heorot_url":
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("sources.heorot_url must be an http or https URL")
		}
		s.Config.Sources.HeorotURL = value
	case "sources.bilingual_path":
		s.Config.Sources.BilingualPath = value
	case "sources.tokens_path":
		s.Config.Sources.TokensPath = value
	case "sources.dictionary_path":
		s.Config.Sources.DictionaryPath = value
	case "sources.abbreviations_path":
		s.Config.Sources.AbbreviationsPath = value
	case "summary.sample_size":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return fmt.Errorf("summary.sample_size must be a non-negative integer")
		}
		s.Config.Summary.SampleSize = n
	case "serve.addr":
		if !strings.Contains(value, ":") {
			return fmt.Errorf("serve.addr must be host:port")
		}
		s.Config.Serve.Addr = value
	case "serve.allowed_origins":
		origins := []string{}
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		s.Config.Serve.AllowedOrigins = origins
	case "export.seconds_per_line":
		n, err := positiveInt(key, value)
		if err != nil {
			return err
		}
		s.Config.Export.SecondsPerLine = n
	default:
		return fmt.Errorf("unknown config key: %s\nValid keys: %s", key, strings.Join(configKeys, ", "))
	}
	return s.SaveConfig()
}

// ConfigValue returns the current value of a dot-path key.
func (s *Store) ConfigValue(key string) (string, error) {
	c := s.Config
	switch key {
	case "sources.heorot_url":
		return c.Sources.HeorotURL, nil
	case "sources.bilingual_path":
		return c.Sources.BilingualPath, nil
	case "sources.tokens_path":
		return c.Sources.TokensPath, nil
	case "sources.dictionary_path":
		return c.Sources.DictionaryPath, nil
	case "sources.abbreviations_path":
		return c.Sources.AbbreviationsPath, nil
	case "summary.sample_size":
		return strconv.Itoa(c.Summary.SampleSize), nil
	case "serve.addr":
		return c.Serve.Addr, nil
	case "serve.allowed_origins":
		return strings.Join(c.Serve.AllowedOrigins, ","), nil
	case "export.seconds_per_line":
		return strconv.Itoa(c.Export.SecondsPerLine), nil
	}
	return "", fmt.Errorf("unknown config key: %s\nValid keys: %s", key, strings.Join(configKeys, ", "))
}

// Path resolves a path within BEODATA_HOME.
func (s *Store) Path(parts ...string) string {
	all := append([]string{s.Home}, parts...)
	return filepath.Join(all...)
}

// Resolve returns p unchanged when absolute, otherwise relative to
// BEODATA_HOME. An empty p stays empty.
func (s *Store) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Home, p)
}

// CheckHealth verifies BEODATA_HOME structure integrity and that the
// configured source assets are readable.
func CheckHealth(home string) []Issue {
	var issues []Issue

	for _, dir := range homeDirs {
		p := filepath.Join(home, dir)
		info, err := os.Stat(p)
		if err != nil {
			issues = append(issues, Issue{"error", fmt.Sprintf("missing directory: %s", p)})
		} else if !info.IsDir() {
			issues = append(issues, Issue{"error", fmt.Sprintf("expected directory but found file: %s", p)})
		}
	}

	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("cannot read config.yaml: %v", err)})
		return issues
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		issues = append(issues, Issue{"error", fmt.Sprintf("config.yaml is not valid YAML: %v", err)})
		return issues
	}

	s := &Store{Home: home, Config: cfg}
	assets := []struct{ key, path string }{
		{"sources.tokens_path", cfg.Sources.TokensPath},
		{"sources.dictionary_path", cfg.Sources.DictionaryPath},
		{"sources.abbreviations_path", cfg.Sources.AbbreviationsPath},
	}
	if cfg.Sources.BilingualPath != "" {
		assets = append(assets, struct{ key, path string }{"sources.bilingual_path", cfg.Sources.BilingualPath})
	}
	for _, a := range assets {
		if a.path == "" {
			issues = append(issues, Issue{"error", fmt.Sprintf("%s is not set", a.key)})
			continue
		}
		if _, err := os.Stat(s.Resolve(a.path)); err != nil {
			issues = append(issues, Issue{"warning", fmt.Sprintf("%s: cannot read %s", a.key, s.Resolve(a.path))})
		}
	}
	if cfg.Export.SecondsPerLine < 1 {
		issues = append(issues, Issue{"error", "export.seconds_per_line must be a positive integer"})
	}

	return issues
}

// FixIssues attempts to repair simple issues in BEODATA_HOME.
func FixIssues(home string) []string {
	var fixed []string

	for _, dir := range homeDirs {
		p := filepath.Join(home, dir)
		if _, err := os.Stat(p); err != nil {
			if err := os.MkdirAll(p, 0755); err == nil {
				fixed = append(fixed, fmt.Sprintf("recreated missing directory: %s", dir))
			}
		}
	}

	cfgPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		if writeConfig(home, DefaultConfig()) == nil {
			fixed = append(fixed, "recreated missing config.yaml with defaults")
		}
	}

	return fixed
}
