// Command psalmslides turns psalms from the online Einheitsübersetzung into
// slide decks and keeps the congregation's file store up to date.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/PsalmSlides/core/errors"
	"github.com/FocuswithJustin/PsalmSlides/core/ir"
	"github.com/FocuswithJustin/PsalmSlides/internal/churchtools"
	"github.com/FocuswithJustin/PsalmSlides/internal/config"
	"github.com/FocuswithJustin/PsalmSlides/internal/logging"
	"github.com/FocuswithJustin/PsalmSlides/internal/odp"
	"github.com/FocuswithJustin/PsalmSlides/internal/pagecache"
	"github.com/FocuswithJustin/PsalmSlides/internal/pipeline"
	"github.com/FocuswithJustin/PsalmSlides/internal/source"
)

const version = "0.2.0"

// stdout receives command results. Logs go to stderr.
var stdout io.Writer = os.Stdout

// CLI defines the command-line interface for psalmslides.
var CLI struct {
	// Global flags
	Config    string `name:"config" short:"c" help:"YAML configuration file" type:"path" env:"PSALMSLIDES_CONFIG"`
	LogLevel  string `name:"log-level" help:"Log level" enum:"debug,info,warn,error" default:"info"`
	LogFormat string `name:"log-format" help:"Log format" enum:"json,text" default:"text"`

	Build   BuildCmd   `cmd:"" help:"Build slide decks for a selection of psalms"`
	Plan    PlanCmd    `cmd:"" help:"Print the slide plan of one psalm as JSON"`
	Inspect InspectCmd `cmd:"" help:"Summarize a generated deck"`
	Sync    SyncCmd    `cmd:"" help:"Replace remote decks with local ones"`
	Cache   CacheGroup `cmd:"" help:"Page cache maintenance"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// CacheGroup contains page cache operations.
type CacheGroup struct {
	Purge CachePurgeCmd `cmd:"" help:"Remove every cached page"`
	Stats CacheStatsCmd `cmd:"" help:"Show cache size"`
}

// BuildCmd builds decks.
type BuildCmd struct {
	Selection string `arg:"" optional:"" help:"Psalms to build, e.g. 1-150 or 23,42-44" default:"1-150"`
	Out       string `short:"o" help:"Output directory (overrides config)" type:"path"`
	Workers   int    `short:"w" help:"Concurrent psalms (overrides config)"`
	NoCache   bool   `name:"no-cache" help:"Bypass the page cache"`
}

func (c *BuildCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	poems, err := ir.ParseSelection(c.Selection)
	if err != nil {
		return err
	}
	if c.Out != "" {
		cfg.OutputDir = c.Out
	}
	if c.Workers > 0 {
		cfg.Workers = c.Workers
	}

	client, closeCache, err := newSourceClient(cfg, c.NoCache)
	if err != nil {
		return err
	}
	defer closeCache()

	p := &pipeline.Pipeline{
		Fetcher:   client,
		Assembler: odp.NewWriter(cfg.OutputDir, cfg.Layout, cfg.Deck),
		Normalize: cfg.Normalize,
		Layout:    cfg.Layout,
		Model:     cfg.Model,
		Workers:   cfg.Workers,
	}

	results := p.Run(ctx, poems)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(stdout, "FAIL %v\n", r.Err)
			continue
		}
		fmt.Fprintf(stdout, "ok   %s (%d verses, %d slides)\n", r.Path, r.Verses, r.Slides)
	}

	ok, failed := pipeline.Summarize(results)
	if failed > 0 {
		return fmt.Errorf("%d of %d psalms failed", failed, ok+failed)
	}
	return nil
}

// PlanCmd prints a slide plan.
type PlanCmd struct {
	Poem    int  `arg:"" help:"Psalm number"`
	NoCache bool `name:"no-cache" help:"Bypass the page cache"`
}

func (c *PlanCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Poem < ir.MinPsalm || c.Poem > ir.MaxPsalm {
		return errors.NewValidation("poem", fmt.Sprintf("%d is outside %d-%d", c.Poem, ir.MinPsalm, ir.MaxPsalm))
	}

	client, closeCache, err := newSourceClient(cfg, c.NoCache)
	if err != nil {
		return err
	}
	defer closeCache()

	p := &pipeline.Pipeline{
		Fetcher:   client,
		Normalize: cfg.Normalize,
		Layout:    cfg.Layout,
		Model:     cfg.Model,
	}
	plan, err := p.Plan(ctx, c.Poem)
	if err != nil {
		return err
	}
	return writeJSON(plan)
}

// InspectCmd summarizes a deck.
type InspectCmd struct {
	Path string `arg:"" help:"Deck file" type:"existingfile"`
	JSON bool   `help:"Print the full summary as JSON"`
}

func (c *InspectCmd) Run() error {
	s, err := odp.Inspect(c.Path)
	if err != nil {
		return err
	}
	if c.JSON {
		return writeJSON(s)
	}

	fmt.Fprintf(stdout, "%s: %q, %d slides, %d verses\n", filepath.Base(c.Path), s.Title(), len(s.Slides), len(s.Paragraphs()))
	for i, slide := range s.Slides {
		fmt.Fprintf(stdout, "  slide %d: %d verses\n", i+1, len(slide.Paragraphs))
	}
	return nil
}

// SyncCmd replaces remote decks.
type SyncCmd struct {
	Dir         string `short:"d" help:"Directory holding the decks (default: output_dir)" type:"path"`
	Pattern     string `help:"Remote file name pattern (overrides config)"`
	ChangedOnly bool   `name:"changed-only" help:"Skip decks unchanged since the last upload"`
	DryRun      bool   `name:"dry-run" help:"Only list what would be replaced"`
}

func (c *SyncCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ct := cfg.ChurchTools
	dir := c.Dir
	if dir == "" {
		dir = cfg.OutputDir
	}
	if c.Pattern != "" {
		ct.Pattern = c.Pattern
	}

	client, err := churchtools.NewClient(churchtools.Options{
		BaseURL:           ct.BaseURL,
		DomainType:        ct.DomainType,
		DomainID:          ct.DomainID,
		Username:          ct.Username,
		Password:          ct.Password,
		Timeout:           ct.Timeout,
		RequestsPerSecond: ct.RequestsPerSecond,
	})
	if err != nil {
		return err
	}

	manifestPath := ct.Manifest
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(dir, manifestPath)
	}
	manifest, err := churchtools.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	ctx = logging.WithRunID(ctx, logging.NewRunID())
	s := &churchtools.Syncer{
		Remote:      client,
		Dir:         dir,
		Pattern:     ct.Pattern,
		Manifest:    manifest,
		ChangedOnly: c.ChangedOnly,
		DryRun:      c.DryRun,
	}
	report, err := s.Run(ctx)
	if report != nil {
		fmt.Fprintf(stdout, "replaced %d, unchanged %d, missing locally %d, failed %d\n",
			len(report.Replaced), len(report.Unchanged), len(report.Missing), len(report.Failed))
		for _, name := range report.Failed {
			fmt.Fprintf(stdout, "FAIL %s\n", name)
		}
	}
	if err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d files failed to sync", len(report.Failed))
	}
	return nil
}

// CachePurgeCmd empties the page cache.
type CachePurgeCmd struct{}

func (c *CachePurgeCmd) Run(ctx context.Context) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer cache.Close()

	n, err := cache.Purge(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "purged %d pages from %s\n", n, cache.Path())
	return nil
}

// CacheStatsCmd prints cache size.
type CacheStatsCmd struct{}

func (c *CacheStatsCmd) Run(ctx context.Context) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer cache.Close()

	s, err := cache.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %d pages, %s compressed (%s driver)\n",
		cache.Path(), s.Entries, humanize.Bytes(uint64(s.CompressedBytes)), pagecache.DriverType())
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "psalmslides version %s\n", version)
	return nil
}

// Helper functions

func loadConfig() (*config.Config, error) {
	return config.Load(CLI.Config)
}

func openCache() (*pagecache.Cache, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Path == "" {
		return nil, errors.NewValidation("cache.path", "no page cache configured")
	}
	return pagecache.Open(cfg.Cache.Path)
}

// newSourceClient builds the page client, attaching the cache when one is
// configured. The returned func releases the cache.
func newSourceClient(cfg *config.Config, noCache bool) (*source.Client, func(), error) {
	opts := source.Options{
		BaseURL:           cfg.Source.BaseURL,
		PathFormat:        cfg.Source.PathFormat,
		UserAgent:         cfg.Source.UserAgent,
		Timeout:           cfg.Source.Timeout,
		RequestsPerSecond: cfg.Source.RequestsPerSecond,
		Burst:             cfg.Source.Burst,
		MaxAge:            cfg.Cache.MaxAge,
	}
	closeFn := func() {}

	if cfg.Cache.Path != "" && !noCache {
		cache, err := pagecache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, nil, err
		}
		opts.Cache = cache
		closeFn = func() { cache.Close() }
	}
	return source.NewClient(opts), closeFn, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func setupLogging() error {
	level, err := logging.ParseLevel(CLI.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(CLI.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

func kongOptions(ctx context.Context) []kong.Option {
	return []kong.Option{
		kong.Name("psalmslides"),
		kong.Description("Psalm slide decks from the Einheitsübersetzung"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(ctx, (*context.Context)(nil)),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	kctx := kong.Parse(&CLI, kongOptions(ctx)...)
	kctx.FatalIfErrorf(setupLogging())
	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}
