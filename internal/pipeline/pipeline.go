// Package pipeline runs fetch, normalize, paginate and assemble for each
// selected psalm. Poems are independent: every task owns its normalizer
// and paginator, and a failing poem does not stop the others.
package pipeline

import (
	"context"
	"time"

	"github.com/FocuswithJustin/PsalmSlides/core/errors"
	"github.com/FocuswithJustin/PsalmSlides/core/ir"
	"github.com/FocuswithJustin/PsalmSlides/core/normalize"
	"github.com/FocuswithJustin/PsalmSlides/core/paginate"
	"github.com/FocuswithJustin/PsalmSlides/internal/logging"
	"github.com/FocuswithJustin/PsalmSlides/internal/workerpool"
)

// Stage names reported in *errors.PoemError.
const (
	StageFetch     = "fetch"
	StageNormalize = "normalize"
	StagePaginate  = "paginate"
	StageAssemble  = "assemble"
)

// Fetcher retrieves the raw verses of a psalm.
type Fetcher interface {
	Fetch(ctx context.Context, poem int) ([]ir.RawVerse, error)
}

// Assembler materializes a paginated psalm and returns where it went.
type Assembler interface {
	Write(poem int, assignments []ir.Assignment) (string, error)
}

// Result is the outcome of one poem's task.
type Result struct {
	Poem     int           `json:"poem"`
	Path     string        `json:"path,omitempty"`
	Slides   int           `json:"slides"`
	Verses   int           `json:"verses"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Plan is a psalm's slide layout without an output file.
type Plan struct {
	Poem        int             `json:"poem"`
	Slides      int             `json:"slides"`
	Lines       int             `json:"lines"`
	Assignments []ir.Assignment `json:"assignments"`
}

// Pipeline holds the collaborators and configuration shared by all tasks.
// None of it is mutated while running.
type Pipeline struct {
	Fetcher   Fetcher
	Assembler Assembler
	Normalize normalize.Options
	Layout    paginate.Layout
	Model     paginate.Model

	// Workers bounds concurrent tasks; zero means one per CPU.
	Workers int
}

// Plan fetches, normalizes and paginates one psalm.
func (p *Pipeline) Plan(ctx context.Context, poem int) (*Plan, error) {
	raws, err := p.Fetcher.Fetch(ctx, poem)
	if err != nil {
		return nil, errors.NewPoem(poem, StageFetch, err)
	}

	verses, err := normalize.NormalizeAll(poem, p.Normalize, raws)
	if err != nil {
		return nil, errors.NewPoem(poem, StageNormalize, err)
	}
	content := ir.Poem{Number: poem, Verses: verses}
	if len(content.Verses) == 0 {
		return nil, errors.NewPoem(poem, StageNormalize, errors.NewValidation("verses", "no verses after normalization"))
	}

	assignments, err := paginate.Paginate(content.Verses, p.Layout, p.Model)
	if err != nil {
		return nil, errors.NewPoem(poem, StagePaginate, err)
	}

	return &Plan{
		Poem:        poem,
		Slides:      len(paginate.Slides(assignments)),
		Lines:       content.LineCount(),
		Assignments: assignments,
	}, nil
}

// Build runs the full pipeline for one psalm.
func (p *Pipeline) Build(ctx context.Context, poem int) Result {
	start := time.Now()
	ctx = logging.WithPoem(ctx, poem)
	logging.PoemStarted(ctx, poem)

	res := Result{Poem: poem}
	finish := func(err error) Result {
		res.Duration = time.Since(start)
		res.Err = err
		if err != nil {
			var pe *errors.PoemError
			stage := ""
			if errors.As(err, &pe) {
				stage = pe.Stage
			}
			logging.PoemFailed(ctx, poem, stage, err)
		} else {
			logging.PoemFinished(ctx, poem, res.Verses, res.Slides, res.Path, "duration_ms", res.Duration.Milliseconds())
		}
		return res
	}

	if err := ctx.Err(); err != nil {
		return finish(errors.NewPoem(poem, StageFetch, err))
	}

	plan, err := p.Plan(ctx, poem)
	if err != nil {
		return finish(err)
	}
	res.Verses = len(plan.Assignments)
	res.Slides = plan.Slides

	path, err := p.Assembler.Write(poem, plan.Assignments)
	if err != nil {
		return finish(errors.NewPoem(poem, StageAssemble, err))
	}
	res.Path = path
	return finish(nil)
}

// Run builds every poem on the worker pool and returns the results in
// selection order. A run ID is attached to the context for log correlation
// unless one is already present.
func (p *Pipeline) Run(ctx context.Context, poems []int) []Result {
	if logging.GetRunID(ctx) == "" {
		ctx = logging.WithRunID(ctx, logging.NewRunID())
	}
	logging.InfoContext(ctx, "build_started", "poems", len(poems), "workers", p.Workers)

	results := workerpool.Map(ctx, p.Workers, poems, p.Build)

	ok, failed := Summarize(results)
	logging.InfoContext(ctx, "build_finished", "succeeded", ok, "failed", failed)
	return results
}

// Summarize counts successful and failed results.
func Summarize(results []Result) (ok, failed int) {
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			ok++
		}
	}
	return ok, failed
}

// Failures returns the errors of failed results in order.
func Failures(results []Result) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
