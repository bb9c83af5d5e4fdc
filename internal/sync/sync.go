// Package sync imports word lists from registered sources into decks.
package sync

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/lexicard/internal/document"
	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/gitsource"
	"github.com/conorfennell/lexicard/internal/parser"
	"github.com/conorfennell/lexicard/internal/storage"
)

// SourceStore lists sources and records when they were scanned.
type SourceStore interface {
	GetAllSources(ctx context.Context) ([]storage.Source, error)
	UpdateSourceLastScanned(ctx context.Context, sourceID int64) error
}

// Importer upserts parsed records into a deck.
type Importer interface {
	Import(ctx context.Context, deckID string, records []domain.ImportRecord, policy domain.DupPolicy) (document.ImportResult, error)
}

// FetchFunc brings a git repository at url up to date under localPath.
type FetchFunc func(ctx context.Context, url, localPath string) (gitsource.Checkout, error)

func fetchGit(ctx context.Context, url, localPath string) (gitsource.Checkout, error) {
	return gitsource.Sync(ctx, url, localPath, gitsource.Options{})
}

// SourceReport summarizes one reconciled source.
type SourceReport struct {
	SourceID   int64
	Path       string
	Files      int
	LineErrors int
	Result     document.ImportResult
	Err        error

	// Revision is the commit imported from a git source.
	Revision string
}

// Syncer reconciles sources against their decks.
type Syncer struct {
	sources  SourceStore
	importer Importer
	reposDir string
	fetch    FetchFunc
}

// New returns a Syncer that clones git sources under reposDir.
func New(sources SourceStore, importer Importer, reposDir string) *Syncer {
	return &Syncer{
		sources:  sources,
		importer: importer,
		reposDir: reposDir,
		fetch:    fetchGit,
	}
}

// WithFetch replaces the git fetcher.
func (s *Syncer) WithFetch(fetch FetchFunc) *Syncer {
	s.fetch = fetch
	return s
}

// DetectType reports whether path names a git remote or a local directory.
func DetectType(path string) string {
	if strings.HasSuffix(path, ".git") ||
		strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "git@") {
		return storage.SourceGit
	}
	return storage.SourceLocal
}

// Run iterates over all sources and reconciles them. A failing source is
// logged and reported without stopping the others.
func (s *Syncer) Run(ctx context.Context) ([]SourceReport, error) {
	slog.Info("Starting sync process for all sources...")
	sources, err := s.sources.GetAllSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with the add-source command")
		return nil, nil
	}

	reports := make([]SourceReport, 0, len(sources))
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		slog.Info("Syncing source", "source_id", source.ID, "type", source.Type, "path", source.Path)
		rep := s.SyncSource(ctx, source)
		if rep.Err != nil {
			slog.Error("Error syncing source", "source_id", source.ID, "path", source.Path, "error", rep.Err)
		}
		reports = append(reports, rep)
	}
	slog.Info("Sync process complete.")
	return reports, nil
}

// SyncSource reconciles a single source.
func (s *Syncer) SyncSource(ctx context.Context, source storage.Source) SourceReport {
	rep := SourceReport{SourceID: source.ID, Path: source.Path}
	dir := source.Path

	switch source.Type {
	case storage.SourceLocal:
	case storage.SourceGit:
		if err := os.MkdirAll(s.reposDir, os.ModePerm); err != nil {
			rep.Err = fmt.Errorf("failed to create repos directory: %w", err)
			return rep
		}
		localRepoPath, err := gitURLToLocalPath(s.reposDir, source.Path)
		if err != nil {
			rep.Err = err
			return rep
		}
		co, err := s.fetch(ctx, source.Path, localRepoPath)
		if err != nil {
			rep.Err = err
			return rep
		}
		rep.Revision = co.Head
		dir = co.Path
	default:
		rep.Err = fmt.Errorf("unknown source type %q", source.Type)
		return rep
	}

	s.reconcile(ctx, source, dir, &rep)
	return rep
}

func isWordList(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".tsv", ".csv":
		return true
	}
	return false
}

func (s *Syncer) reconcile(ctx context.Context, source storage.Source, dir string, rep *SourceReport) {
	var records []domain.ImportRecord

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !isWordList(d.Name()) {
			return nil
		}
		res, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			slog.Warn("Failed to parse word list", "path", path, "error", parseErr)
			return nil
		}
		for _, le := range res.Errors {
			slog.Debug("Skipping malformed line", "path", path, "line", le.Line)
		}
		rep.Files++
		rep.LineErrors += len(res.Errors)
		records = append(records, res.Records...)
		return nil
	})
	if walkErr != nil {
		rep.Err = fmt.Errorf("error walking directory %s: %w", dir, walkErr)
		return
	}

	result, err := s.importer.Import(ctx, source.DeckID, records, domain.DupOverwrite)
	if err != nil {
		rep.Err = fmt.Errorf("import into deck %s: %w", source.DeckID, err)
		return
	}
	rep.Result = result

	if err := s.sources.UpdateSourceLastScanned(ctx, source.ID); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("Reconciliation complete",
		"path", dir,
		"files", rep.Files,
		"added", result.Added,
		"updated", result.Updated,
		"line_errors", rep.LineErrors,
	)
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
