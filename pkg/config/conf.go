package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mchmarny/duanju/pkg/exercise"
	"github.com/mchmarny/duanju/pkg/segment"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600

	DefaultAPIURL           = "https://zhixunshiyun.yezhiqiu.cn"
	DefaultTimeout          = 10 * time.Second
	DefaultGenerateLock     = 40 * time.Second
	DefaultFetchConcurrency = 4
)

// Config represents app config object.
type Config struct {
	APIURL            string          `yaml:"api_url"`
	Timeout           time.Duration   `yaml:"timeout"`
	GenerateLock      time.Duration   `yaml:"generate_lock"`
	FetchConcurrency  int             `yaml:"fetch_concurrency"`
	Marker            string          `yaml:"marker"`
	Folding           segment.Folding `yaml:"folding"`
	TrimTrailingMarks *bool           `yaml:"trim_trailing_marks"`
	Modes             exercise.Modes  `yaml:"modes"`
}

// Default returns the configuration used when none is on disk.
func Default() *Config {
	rules := segment.DefaultTextRules()
	return &Config{
		APIURL:            DefaultAPIURL,
		Timeout:           DefaultTimeout,
		GenerateLock:      DefaultGenerateLock,
		FetchConcurrency:  DefaultFetchConcurrency,
		Marker:            segment.DefaultMarker,
		Folding:           rules.Folding,
		TrimTrailingMarks: &rules.TrimTrailingMarks,
		Modes:             exercise.DefaultModes(),
	}
}

// TextRules returns the normalization used by text comparison.
func (c *Config) TextRules() segment.TextRules {
	r := segment.TextRules{Folding: c.Folding, TrimTrailingMarks: true}
	if c.TrimTrailingMarks != nil {
		r.TrimTrailingMarks = *c.TrimTrailingMarks
	}
	return r
}

// Scorer builds the scorer described by the config.
func (c *Config) Scorer() *segment.Scorer {
	return segment.NewScorer(c.TextRules(), c.Marker)
}

// Validate checks modes and limits.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("api_url required")
	}
	if c.Timeout <= 0 {
		return errors.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.FetchConcurrency < 1 {
		return errors.Errorf("fetch_concurrency must be at least 1, got %d", c.FetchConcurrency)
	}
	for src, m := range c.Modes {
		if _, err := exercise.ParseSource(string(src)); err != nil {
			return errors.Wrap(err, "invalid modes entry")
		}
		if _, err := segment.ParseStrategy(string(m.Strategy)); err != nil {
			return errors.Wrapf(err, "invalid strategy for %s: %q", src, m.Strategy)
		}
		if m.Comparison != segment.ComparisonSet && m.Comparison != segment.ComparisonText {
			return errors.Errorf("invalid comparison for %s: %q", src, m.Comparison)
		}
	}
	return nil
}

// fill replaces missing values with defaults so that partial files work.
func (c *Config) fill() {
	d := Default()
	if c.APIURL == "" {
		c.APIURL = d.APIURL
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.GenerateLock == 0 {
		c.GenerateLock = d.GenerateLock
	}
	if c.FetchConcurrency == 0 {
		c.FetchConcurrency = d.FetchConcurrency
	}
	if c.Marker == "" {
		c.Marker = d.Marker
	}
	if c.Folding == nil {
		c.Folding = d.Folding
	}
	if c.TrimTrailingMarks == nil {
		c.TrimTrailingMarks = d.TrimTrailingMarks
	}
	if c.Modes == nil {
		c.Modes = exercise.Modes{}
	}
	for src, m := range d.Modes {
		if _, ok := c.Modes[src]; !ok {
			c.Modes[src] = m
		}
	}
}

func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return errors.Wrapf(err, "failed to write config file: %s", configFileName)
	}
	return nil
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		err := os.MkdirAll(dirPath, dirMode)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create dir: %s", dirPath)
		}
	}

	path := filepath.Join(dirPath, configFileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, Default()); err != nil {
			return nil, errors.Wrap(err, "failed to create default config")
		}
	}

	j, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening config file: %s", path)
	}
	defer j.Close()

	b, err := io.ReadAll(j)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config file %s", path)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrapf(err, "error unmarshalling config file %s", path)
	}
	c.fill()

	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", path)
	}
	return &c, nil
}

// GetOrCreateHomeDir returns the app directory in the current user's home.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, errors.Wrap(err, "failed to get user home dir")
	}
	slog.Debug("home dir", "path", home)

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		err := os.Mkdir(dir, dirMode)
		if err != nil {
			return "", false, errors.Wrapf(err, "failed to create dir: %s", dir)
		}
		created = true
	}
	return dir, created, nil
}
