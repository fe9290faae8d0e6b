// Package config loads the YAML run configuration and overlays it on the
// built-in defaults.
package config

import (
	"bytes"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/PsalmSlides/core/errors"
	"github.com/FocuswithJustin/PsalmSlides/core/ir"
	"github.com/FocuswithJustin/PsalmSlides/core/normalize"
	"github.com/FocuswithJustin/PsalmSlides/core/paginate"
	"github.com/FocuswithJustin/PsalmSlides/internal/churchtools"
	"github.com/FocuswithJustin/PsalmSlides/internal/odp"
	"github.com/FocuswithJustin/PsalmSlides/internal/source"
)

// Config is the complete run configuration.
type Config struct {
	// OutputDir receives the generated decks.
	OutputDir string `yaml:"output_dir"`

	// Workers bounds concurrent poems; zero means one per CPU.
	Workers int `yaml:"workers"`

	Layout    paginate.Layout   `yaml:"layout"`
	Model     paginate.Model    `yaml:"model"`
	Normalize normalize.Options `yaml:"normalize"`
	Deck      odp.Options       `yaml:"deck"`

	Source      Source      `yaml:"source"`
	Cache       Cache       `yaml:"cache"`
	ChurchTools ChurchTools `yaml:"churchtools"`
}

// Source configures page retrieval.
type Source struct {
	BaseURL           string        `yaml:"base_url"`
	PathFormat        string        `yaml:"path_format"`
	UserAgent         string        `yaml:"user_agent"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// Cache configures the page cache. An empty path disables it.
type Cache struct {
	Path   string        `yaml:"path"`
	MaxAge time.Duration `yaml:"max_age"`
}

// ChurchTools configures the remote file store.
type ChurchTools struct {
	BaseURL           string        `yaml:"base_url"`
	DomainType        string        `yaml:"domain_type"`
	DomainID          string        `yaml:"domain_id"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	Pattern           string        `yaml:"pattern"`
	Manifest          string        `yaml:"manifest"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir: ".",
		Layout:    paginate.DefaultLayout(),
		Model:     paginate.DefaultModel(),
		Normalize: normalize.DefaultOptions(),
		Deck:      odp.DefaultOptions(),
		Source: Source{
			BaseURL:           source.DefaultBaseURL,
			PathFormat:        source.DefaultPathFormat,
			UserAgent:         source.DefaultUserAgent,
			Timeout:           source.DefaultTimeout,
			RequestsPerSecond: 4,
			Burst:             2,
		},
		Cache: Cache{
			MaxAge: 7 * 24 * time.Hour,
		},
		ChurchTools: ChurchTools{
			BaseURL:           churchtools.DefaultBaseURL,
			DomainType:        churchtools.DefaultDomainType,
			DomainID:          churchtools.DefaultDomainID,
			Pattern:           churchtools.DefaultPattern,
			Manifest:          ".psalmslides-sync.json",
			Timeout:           churchtools.DefaultTimeout,
			RequestsPerSecond: 2,
		},
	}
}

// Load reads the file at path over the defaults. An empty path yields the
// defaults. ${VAR} references are expanded from the environment, unknown
// keys are rejected and credentials left empty fall back to
// CHURCHTOOLS_USER and CHURCHTOOLS_PASSWORD.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewIO("read", path, err)
		}
		if err := c.decode(data); err != nil {
			return nil, errors.Wrapf(err, "config %s", path)
		}
	}

	if c.ChurchTools.Username == "" {
		c.ChurchTools.Username = os.Getenv(churchtools.EnvUser)
	}
	if c.ChurchTools.Password == "" {
		c.ChurchTools.Password = os.Getenv(churchtools.EnvPassword)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse decodes YAML over the defaults without touching the environment
// credentials.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := c.decode(data); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) decode(data []byte) error {
	data = []byte(os.ExpandEnv(string(data)))

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(c); err != nil && err != io.EOF {
		return errors.NewValidation("yaml", err.Error())
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return errors.NewConfiguration("workers", float64(c.Workers), "must not be negative")
	}
	if c.OutputDir == "" {
		return errors.NewValidation("output_dir", "must not be empty")
	}
	if c.Normalize.AcrosticPoem != 0 &&
		(c.Normalize.AcrosticPoem < ir.MinPsalm || c.Normalize.AcrosticPoem > ir.MaxPsalm) {
		return errors.NewConfiguration("normalize.acrostic_poem", float64(c.Normalize.AcrosticPoem), "must be a psalm number or 0")
	}
	if strings.ContainsAny(c.Deck.Prefix, `/\`) {
		return errors.NewValidation("deck.prefix", "must not contain path separators")
	}
	if !strings.Contains(c.Source.PathFormat, "%d") {
		return errors.NewValidation("source.path_format", "must contain %d")
	}
	if c.Source.RequestsPerSecond < 0 {
		return errors.NewConfiguration("source.requests_per_second", c.Source.RequestsPerSecond, "must not be negative")
	}
	if c.ChurchTools.RequestsPerSecond < 0 {
		return errors.NewConfiguration("churchtools.requests_per_second", c.ChurchTools.RequestsPerSecond, "must not be negative")
	}
	return nil
}
