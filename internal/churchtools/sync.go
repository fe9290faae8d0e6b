package churchtools

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/FocuswithJustin/PsalmSlides/core/errors"
	"github.com/FocuswithJustin/PsalmSlides/internal/logging"
)

// DefaultPattern selects the remote files to replace.
const DefaultPattern = "Psalm_*.odp"

// Remote is the file store the syncer replaces files in.
type Remote interface {
	Login(ctx context.Context) error
	Files(ctx context.Context) ([]File, error)
	Delete(ctx context.Context, id int) error
	Upload(ctx context.Context, name string, content io.Reader) error
}

// Syncer replaces remote decks with their local versions. Only files that
// already exist remotely are touched; new decks are never added.
type Syncer struct {
	Remote  Remote
	Dir     string
	Pattern string

	// Manifest, when set, records uploads. With ChangedOnly, files whose
	// hash matches the manifest are skipped.
	Manifest    *Manifest
	ChangedOnly bool

	// DryRun lists what would be replaced without changing anything.
	DryRun bool
}

// Report summarizes a sync run. Each list holds file names.
type Report struct {
	Replaced  []string `json:"replaced"`
	Unchanged []string `json:"unchanged,omitempty"`
	Missing   []string `json:"missing,omitempty"`
	Failed    []string `json:"failed,omitempty"`
}

// Run logs in, lists the remote files and replaces every matching file
// that exists locally. Per-file failures are reported and do not stop the
// run; login and listing failures do.
func (s *Syncer) Run(ctx context.Context) (*Report, error) {
	pattern := s.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, errors.NewValidation("pattern", err.Error())
	}

	if err := s.Remote.Login(ctx); err != nil {
		return nil, err
	}
	files, err := s.Remote.Files(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list remote files")
	}

	var matched []File
	for _, f := range files {
		if ok, _ := path.Match(pattern, f.Name); ok {
			matched = append(matched, f)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	logging.InfoContext(ctx, "remote files listed", "total", len(files), "matched", len(matched), "pattern", pattern)

	report := &Report{}
	for _, f := range matched {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s.syncFile(ctx, f, report)
	}

	if s.Manifest != nil && !s.DryRun {
		if err := s.Manifest.Save(); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (s *Syncer) syncFile(ctx context.Context, f File, report *Report) {
	local := filepath.Join(s.Dir, f.Name)
	info, err := os.Stat(local)
	if err != nil {
		logging.WarnContext(ctx, "local file not found, skipping", "file", f.Name)
		report.Missing = append(report.Missing, f.Name)
		return
	}

	var hash string
	if s.Manifest != nil {
		hash, err = HashFile(local)
		if err != nil {
			logging.ErrorContext(ctx, "hash failed", "file", f.Name, "error", err)
			report.Failed = append(report.Failed, f.Name)
			return
		}
		if s.ChangedOnly && s.Manifest.Unchanged(f.Name, hash) {
			logging.SyncEvent(ctx, "unchanged", f.Name)
			report.Unchanged = append(report.Unchanged, f.Name)
			return
		}
	}

	size := humanize.Bytes(uint64(info.Size()))
	if s.DryRun {
		logging.SyncEvent(ctx, "would_replace", f.Name, "size", size)
		report.Replaced = append(report.Replaced, f.Name)
		return
	}

	if err := s.Remote.Delete(ctx, f.ID); err != nil {
		logging.ErrorContext(ctx, "delete failed", "file", f.Name, "error", err)
		report.Failed = append(report.Failed, f.Name)
		return
	}
	logging.SyncEvent(ctx, "deleted", f.Name, "id", f.ID)

	content, err := os.Open(local)
	if err != nil {
		logging.ErrorContext(ctx, "open failed", "file", f.Name, "error", err)
		report.Failed = append(report.Failed, f.Name)
		return
	}
	defer content.Close()

	if err := s.Remote.Upload(ctx, f.Name, content); err != nil {
		logging.ErrorContext(ctx, "upload failed", "file", f.Name, "error", err)
		report.Failed = append(report.Failed, f.Name)
		return
	}
	logging.SyncEvent(ctx, "uploaded", f.Name, "size", size)
	report.Replaced = append(report.Replaced, f.Name)

	if s.Manifest != nil {
		s.Manifest.Set(f.Name, hash)
	}
}
