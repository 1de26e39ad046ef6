package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v2"

	"github.com/sitescout/sitescout/config"
	"github.com/sitescout/sitescout/internal/api"
	"github.com/sitescout/sitescout/internal/fetcher"
	"github.com/sitescout/sitescout/internal/models"
	"github.com/sitescout/sitescout/internal/platform"
	"github.com/sitescout/sitescout/internal/scoring"
	"github.com/sitescout/sitescout/internal/sitemap"
	"github.com/sitescout/sitescout/internal/storage"
	"github.com/sitescout/sitescout/internal/utils"
	"github.com/sitescout/sitescout/internal/writer"
)

func main() {
	app := &cli.App{
		Name:  "sitescout",
		Usage: "rank a site's sitemap URLs and fetch the pages worth reading",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a config file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "scan",
				Usage:     "discover, rank and fetch the most valuable pages of a site",
				ArgsUsage: "<site-or-sitemap-url>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top",
						Aliases: []string{"n"},
						Usage:   "number of top-ranked pages to fetch",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "directory for scraped output",
					},
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "skip the confirmation prompt",
					},
					&cli.BoolFlag{
						Name:  "skip-products",
						Usage: "drop product and system pages on ecommerce sites",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "rank and display only, fetch nothing",
					},
				},
				Action: scanAction,
			},
			{
				Name:      "inspect",
				Usage:     "resolve a sitemap tree and print its statistics",
				ArgsUsage: "<site-or-sitemap-url>",
				Action:    inspectAction,
			},
			{
				Name:  "serve",
				Usage: "serve the results API over stored runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "port to listen on",
					},
				},
				Action: serveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func scanAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: sitescout scan <site-or-sitemap-url>", 2)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load config: %v", err), 1)
	}
	if c.IsSet("top") {
		cfg.Scan.TopN = c.Int("top")
	}
	if c.IsSet("output") {
		cfg.Scan.OutputDir = c.String("output")
	}
	if c.Bool("skip-products") {
		cfg.Scan.SkipProducts = true
	}

	logger, err := utils.NewLogger(cfg.Logging.Level, cfg.Logging.Directory)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create logger: %v", err), 1)
	}
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, finishing up...")
		cancel()
	}()

	rootURL := sitemap.NormalizeSiteURL(c.Args().First())
	resolver := sitemap.NewResolver(cfg.Scan.DocumentTimeoutDuration(), cfg.Scan.UserAgent, logger)

	sitemapURL, result, err := locateAndResolve(ctx, resolver, rootURL)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	info := platform.Detect(sitemapURL, result.DocumentURLs)

	entries := result.Entries
	discovered := len(entries)
	removed := 0
	if cfg.Scan.SkipProducts && info.Ecommerce() {
		entries, removed = platform.FilterEntries(entries)
		logger.Info("filtered ecommerce noise", "removed", removed, "kept", len(entries))
	}

	scorer := scoring.NewScorer(rootURL, cfg.ScorerConfig())
	ranking := scoring.Rank(scorer.ScoreAll(entries, time.Now()))
	selection := ranking.Top(cfg.Scan.TopN)

	fmt.Printf("\nSitemap:   %s\n", sitemapURL)
	fmt.Printf("Documents: %d (%d indexes, %d urlsets)\n", result.Documents, result.IndexDocs, result.URLSetDocs)
	fmt.Printf("Entries:   %d discovered, %d duplicates, %d skipped", discovered, result.Duplicates, result.Skipped)
	if removed > 0 {
		fmt.Printf(", %d product/system pages removed", removed)
	}
	fmt.Println()
	fmt.Printf("Platform:  %s\n", formatPlatform(info))
	if len(result.Errors) > 0 {
		fmt.Printf("Warnings:  %d documents failed (see log)\n", len(result.Errors))
	}

	if ranking.Len() == 0 {
		return cli.Exit("no URLs discovered, nothing to do", 1)
	}

	fmt.Printf("\nTop %d pages:\n", len(selection))
	printRankedTable(os.Stdout, ranking, cfg.Scan.TopN)

	if c.Bool("dry-run") {
		return nil
	}

	if !c.Bool("yes") && !confirm(os.Stdin, os.Stdout, fmt.Sprintf("\nFetch these %d pages?", len(selection))) {
		fmt.Println("Aborted.")
		return nil
	}

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open storage: %v", err), 1)
	}
	defer store.Close()

	if err := store.Initialize(); err != nil {
		return cli.Exit(fmt.Sprintf("failed to initialize storage: %v", err), 1)
	}

	run := models.NewRun(rootURL)
	run.SitemapURL = sitemapURL
	run.SiteType = string(info.Type)
	run.Platform = string(info.Platform)
	run.TotalDiscovered = discovered
	run.TotalSelected = len(selection)

	w, err := writer.NewWriter(cfg.Scan.OutputDir, rootURL, run.StartedAt)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create output directory: %v", err), 1)
	}
	run.OutputDir = w.Dir()

	if err := store.CreateRun(ctx, run); err != nil {
		return cli.Exit(fmt.Sprintf("failed to record run: %v", err), 1)
	}

	f := fetcher.New(store, w, logger, fetcher.Options{
		UserAgent:     cfg.Scan.UserAgent,
		Delay:         cfg.Scan.FetchDelayDuration(),
		Timeout:       cfg.Scan.DocumentTimeoutDuration(),
		MaxTextLength: cfg.Scan.MaxTextLength,
	})

	summary, fetchErr := f.FetchAll(ctx, run, selection)

	run.TotalFetched = summary.Fetched
	run.TotalFailed = summary.Failed
	if fetchErr != nil {
		run.Fail()
	} else {
		run.Complete()
	}
	// The scan context may already be cancelled; the final status update
	// still has to land.
	if err := store.UpdateRun(context.Background(), run); err != nil {
		logger.Error("failed to update run", "error", err)
	}

	manifest := &writer.Manifest{
		RootURL:    rootURL,
		SitemapURL: sitemapURL,
		SiteType:   string(info.Type),
		Platform:   string(info.Platform),
		StartedAt:  run.StartedAt,
		Discovered: discovered,
		Selected:   len(selection),
		Fetched:    summary.Fetched,
		Failed:     summary.Failed,
		Pages:      summary.Records,
	}
	if err := w.WriteManifest(manifest); err != nil {
		logger.Error("failed to write manifest", "error", err)
	}
	if err := w.WriteSummary(manifest); err != nil {
		logger.Error("failed to write summary", "error", err)
	}

	fmt.Printf("\nFetched %d pages, %.1f KB (%d failed) into %s\n",
		summary.Fetched, float64(summary.Bytes)/1024, summary.Failed, w.Dir())
	fmt.Printf("Run ID:  %s\n", run.ID)
	fmt.Printf("Log:     %s\n", logger.Path())

	if fetchErr != nil {
		return cli.Exit("scan interrupted", 1)
	}
	return nil
}

func inspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: sitescout inspect <site-or-sitemap-url>", 2)
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load config: %v", err), 1)
	}

	logger, err := utils.NewLogger(cfg.Logging.Level, cfg.Logging.Directory)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create logger: %v", err), 1)
	}
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rootURL := sitemap.NormalizeSiteURL(c.Args().First())
	resolver := sitemap.NewResolver(cfg.Scan.DocumentTimeoutDuration(), cfg.Scan.UserAgent, logger)

	sitemapURL, result, err := locateAndResolve(ctx, resolver, rootURL)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	info := platform.Detect(sitemapURL, result.DocumentURLs)

	fmt.Printf("Sitemap:    %s\n", sitemapURL)
	fmt.Printf("Documents:  %d (%d indexes, %d urlsets)\n", result.Documents, result.IndexDocs, result.URLSetDocs)
	fmt.Printf("Entries:    %d\n", len(result.Entries))
	fmt.Printf("Duplicates: %d\n", result.Duplicates)
	fmt.Printf("Skipped:    %d\n", result.Skipped)
	fmt.Printf("Platform:   %s\n", formatPlatform(info))
	for _, indicator := range info.Indicators {
		fmt.Printf("  indicator: %s\n", indicator)
	}
	if len(result.Errors) > 0 {
		fmt.Printf("Errors:     %d\n", len(result.Errors))
		for _, resolveErr := range result.Errors {
			fmt.Printf("  - %v\n", resolveErr)
		}
	}

	return nil
}

func serveAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load config: %v", err), 1)
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to open storage: %v", err), 1)
	}
	defer store.Close()

	if err := store.Initialize(); err != nil {
		return cli.Exit(fmt.Sprintf("failed to initialize storage: %v", err), 1)
	}

	server := api.NewServer(cfg.Server.Port, store)

	errChan := make(chan error, 1)
	go func() {
		fmt.Printf("Serving results API on port %d\n", cfg.Server.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return cli.Exit(fmt.Sprintf("server error: %v", err), 1)
	case <-sigChan:
	}

	fmt.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return cli.Exit(fmt.Sprintf("error shutting down server: %v", err), 1)
	}
	return nil
}

// locateAndResolve turns the user's argument into a resolved sitemap
// tree, running discovery first unless the argument already points at a
// sitemap document.
func locateAndResolve(ctx context.Context, resolver *sitemap.Resolver, rootURL string) (string, *sitemap.Result, error) {
	sitemapURL := rootURL
	if !sitemap.LooksLikeSitemapURL(rootURL) {
		sp := newSpinner(" locating sitemap...")
		sp.Start()
		found, err := resolver.Discover(ctx, rootURL)
		sp.Stop()
		if err != nil {
			return "", nil, fmt.Errorf("no sitemap found for %s: %w", rootURL, err)
		}
		sitemapURL = found
	}

	sp := newSpinner(" resolving sitemap tree...")
	sp.Start()
	result, err := resolver.Resolve(ctx, sitemapURL)
	sp.Stop()
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve sitemap: %w", err)
	}

	return sitemapURL, result, nil
}

func newSpinner(suffix string) *spinner.Spinner {
	sp := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	sp.Suffix = suffix
	return sp
}

func printRankedTable(out io.Writer, ranking *scoring.Ranking, topN int) {
	fmt.Fprintf(out, "%4s  %7s  %5s  %2s  %s\n", "RANK", "SCORE", "DEPTH", "KW", "URL")
	for _, row := range ranking.Rows(topN) {
		kw := "-"
		if row.HasKeyword {
			kw = "y"
		}
		fmt.Fprintf(out, "%4d  %7.1f  %5d  %2s  %s\n", row.Rank, row.Score, row.Depth, kw, row.URL)
	}
	if ranking.Len() > topN {
		fmt.Fprintf(out, "  ... and %d more\n", ranking.Len()-topN)
	}
}

func formatPlatform(info platform.Info) string {
	if !info.Ecommerce() {
		return "standard site"
	}
	name := string(info.Platform)
	if info.Platform == platform.Unknown {
		name = "unrecognized ecommerce"
	}
	return fmt.Sprintf("%s (ecommerce, confidence %.2f)", name, info.Confidence)
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
