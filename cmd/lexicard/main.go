package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/lexicard/internal/config"
	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/parser"
	"github.com/conorfennell/lexicard/internal/storage"
	"github.com/conorfennell/lexicard/internal/study"
	"github.com/conorfennell/lexicard/internal/sync"
	"github.com/conorfennell/lexicard/internal/web"
)

const usage = `usage: lexicard <command> [flags] [args]

commands:
  serve                 run the HTTP API
  import <file>...      import word lists into a deck
  add-source <path|url> register a directory or git repository for sync
  sync                  import every registered source
  stats                 print deck statistics
  template              print a sample import file
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("lexicard failed", "error", err)
		os.Exit(1)
	}
}

// app holds what every command needs once the configuration is loaded.
type app struct {
	cfg *config.Config
	db  *storage.DB
	svc *study.Service
	out io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("no command given")
	}
	cmd, args := args[0], args[1:]

	if cmd == "template" {
		fmt.Fprintln(out, parser.Template())
		return nil
	}

	fs := config.NewFlagSet(cmd)
	var deckID, policy string
	switch cmd {
	case "serve", "sync":
	case "import":
		fs.StringVar(&deckID, "deck", "", "Target deck ID (default selected deck)")
		fs.StringVar(&policy, "policy", string(domain.DupSkip), "Duplicate policy: skip or overwrite")
	case "add-source", "stats":
		fs.StringVar(&deckID, "deck", "", "Deck ID (default selected deck)")
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	cfg, err := config.Load(fs, args)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))

	a, err := open(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer a.db.Close()

	switch cmd {
	case "serve":
		return a.serve(ctx)
	case "import":
		return a.importFiles(ctx, deckID, domain.ParseDupPolicy(policy), fs.Args())
	case "add-source":
		if fs.NArg() != 1 {
			return errors.New("add-source takes exactly one path or URL")
		}
		return a.addSource(ctx, fs.Arg(0), deckID)
	case "sync":
		return a.syncSources(ctx)
	default:
		return a.stats(deckID)
	}
}

func open(ctx context.Context, cfg *config.Config, out io.Writer) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(cfg.DB)
	if err != nil {
		return nil, err
	}
	slog.Debug("Database opened successfully", "path", cfg.DB)

	svc, err := study.Open(ctx, db,
		study.WithKey(cfg.DocumentKey),
		study.WithLocation(loc),
		study.WithLedgerCapacity(cfg.LedgerCapacity),
	)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &app{cfg: cfg, db: db, svc: svc, out: out}, nil
}

func (a *app) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           web.NewServer(a.svc, a.db, sync.New(a.db, a.svc, a.cfg.ReposDir)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", a.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) importFiles(ctx context.Context, deckID string, policy domain.DupPolicy, paths []string) error {
	if len(paths) == 0 {
		return errors.New("import needs at least one file")
	}
	for _, path := range paths {
		res, err := parser.ParseFile(path)
		if err != nil {
			return fmt.Errorf("error parsing %s: %w", path, err)
		}
		out, err := a.svc.Import(ctx, deckID, res.Records, policy)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s: %d added, %d updated, %d skipped, %d errors.\n",
			path, out.Added, out.Updated, out.Skipped, len(res.Errors))
		for _, e := range res.Errors {
			fmt.Fprintf(a.out, "- %s\n", e)
		}
	}
	return nil
}

func (a *app) addSource(ctx context.Context, path, deckID string) error {
	if deckID == "" {
		deckID = a.svc.SelectedDeckID()
	}
	existing, err := a.db.FindSourceByPath(ctx, path)
	if err != nil {
		return err
	}
	if existing != nil {
		fmt.Fprintf(a.out, "Source already exists: %s (id %d)\n", existing.Path, existing.ID)
		return nil
	}

	sourceType := sync.DetectType(path)
	id, err := a.db.InsertSource(ctx, path, sourceType, deckID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s source %s (id %d) for deck %s\n", sourceType, path, id, deckID)
	return nil
}

func (a *app) syncSources(ctx context.Context) error {
	reports, err := sync.New(a.db, a.svc, a.cfg.ReposDir).Run(ctx)
	if err != nil {
		return err
	}
	failed := 0
	for _, rep := range reports {
		if rep.Err != nil {
			failed++
			fmt.Fprintf(a.out, "%s: %v\n", rep.Path, rep.Err)
			continue
		}
		fmt.Fprintf(a.out, "%s: %d files, %d added, %d updated, %d errors.\n",
			rep.Path, rep.Files, rep.Result.Added, rep.Result.Updated, rep.LineErrors)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(reports))
	}
	return nil
}

func (a *app) stats(deckID string) error {
	st := a.svc.Stats(deckID)
	fmt.Fprintf(a.out, "Cards: %d  Due: %d  New: %d\n", st.TotalCards, st.DueReview, st.NewAvailable)
	fmt.Fprintf(a.out, "Today: %d reviewed, %d correct, %d new (%d%%)\n",
		st.TodayTotal, st.TodayCorrect, st.TodayNew, st.Accuracy)
	if sum, ok := a.svc.Summary(deckID); ok {
		fmt.Fprintf(a.out, "Deck %q: %d/%d new today, %d planned\n",
			sum.DeckName, sum.NewToday, sum.NewLimit, sum.NewPlanned)
	}

	ranking := a.svc.RankByTag(deckID, domain.TagTopic, "")
	if len(ranking) > 0 {
		fmt.Fprintln(a.out, "\nWeakest topics:")
		for _, r := range ranking[:min(5, len(ranking))] {
			fmt.Fprintf(a.out, "- %s: %d%% of %d\n", r.Key, r.Percent(), r.Total)
		}
	}
	return nil
}
