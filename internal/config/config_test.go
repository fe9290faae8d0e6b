package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	perrors "github.com/FocuswithJustin/PsalmSlides/core/errors"
	"github.com/FocuswithJustin/PsalmSlides/core/paginate"
)

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if c.Layout != paginate.DefaultLayout() {
		t.Errorf("Layout = %+v", c.Layout)
	}
	if c.Normalize.AcrosticPoem != 119 {
		t.Errorf("AcrosticPoem = %d, want 119", c.Normalize.AcrosticPoem)
	}
	if c.Deck.FileName(7) != "Psalm_007.odp" {
		t.Errorf("Deck.FileName(7) = %q", c.Deck.FileName(7))
	}
}

func TestLoadEmptyPath(t *testing.T) {
	t.Setenv("CHURCHTOOLS_USER", "env-user")
	t.Setenv("CHURCHTOOLS_PASSWORD", "env-pass")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if c.ChurchTools.Username != "env-user" || c.ChurchTools.Password != "env-pass" {
		t.Errorf("credentials = %q/%q, want env values", c.ChurchTools.Username, c.ChurchTools.Password)
	}
}

func TestLoadOverlay(t *testing.T) {
	t.Setenv("PSALM_OUT", "/tmp/decks")
	t.Setenv("CT_PASS", "hunter2")

	path := filepath.Join(t.TempDir(), "psalmslides.yaml")
	data := `output_dir: ${PSALM_OUT}
workers: 3
layout:
  font_size_pt: 28
  wrap_columns: 40
normalize:
  interlude_cues: [Sela, Higgajon]
deck:
  prefix: Ps
cache:
  path: cache/pages.db
  max_age: 48h
churchtools:
  password: ${CT_PASS}
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if c.OutputDir != "/tmp/decks" {
		t.Errorf("OutputDir = %q", c.OutputDir)
	}
	if c.Workers != 3 {
		t.Errorf("Workers = %d", c.Workers)
	}
	if c.Layout.FontSizePt != 28 || c.Layout.WrapColumns != 40 {
		t.Errorf("Layout overlay = %+v", c.Layout)
	}
	if c.Layout.SpaceAfterPt != 12 || c.Layout.SlideHeightIn != 7.5 {
		t.Errorf("Layout defaults lost: %+v", c.Layout)
	}
	if len(c.Normalize.InterludeCues) != 2 || c.Normalize.InterludeCues[1] != "Higgajon" {
		t.Errorf("InterludeCues = %v", c.Normalize.InterludeCues)
	}
	if c.Normalize.AcrosticPoem != 119 {
		t.Errorf("AcrosticPoem = %d, want default 119", c.Normalize.AcrosticPoem)
	}
	if c.Deck.Prefix != "Ps" || c.Deck.Closing == "" {
		t.Errorf("Deck = %+v", c.Deck)
	}
	if c.Cache.Path != "cache/pages.db" || c.Cache.MaxAge != 48*time.Hour {
		t.Errorf("Cache = %+v", c.Cache)
	}
	if c.ChurchTools.Password != "hunter2" {
		t.Errorf("Password = %q", c.ChurchTools.Password)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		target error
	}{
		{"unknown key", "colour: blue\n", perrors.ErrInvalidInput},
		{"unknown nested key", "layout:\n  font: 12\n", perrors.ErrInvalidInput},
		{"bad geometry", "layout:\n  slide_height_in: 0.01\n", perrors.ErrConfiguration},
		{"negative workers", "workers: -2\n", perrors.ErrConfiguration},
		{"acrostic out of range", "normalize:\n  acrostic_poem: 151\n", perrors.ErrConfiguration},
		{"prefix with separator", "deck:\n  prefix: a/b\n", perrors.ErrInvalidInput},
		{"path format without verb", "source:\n  path_format: Ps.html\n", perrors.ErrInvalidInput},
		{"negative rate", "source:\n  requests_per_second: -1\n", perrors.ErrConfiguration},
		{"empty output", "output_dir: \"\"\n", perrors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, tt.target) {
				t.Errorf("Parse() error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	c, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error: %v", err)
	}
	if c.OutputDir != "." {
		t.Errorf("OutputDir = %q", c.OutputDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var ioErr *perrors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("Load() error = %v, want *IOError", err)
	}
}
