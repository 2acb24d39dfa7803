package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/smendez-hq/ticket-verifier/internal/cache"
	"github.com/smendez-hq/ticket-verifier/internal/classify"
	"github.com/smendez-hq/ticket-verifier/internal/common"
	"github.com/smendez-hq/ticket-verifier/internal/extract"
	"github.com/smendez-hq/ticket-verifier/internal/ledger"
	"github.com/smendez-hq/ticket-verifier/internal/ocr"
	"github.com/smendez-hq/ticket-verifier/internal/report"
	"github.com/smendez-hq/ticket-verifier/internal/verify"
	"github.com/smendez-hq/ticket-verifier/internal/vision"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		imagesDir  = flag.String("images", "", "directory with receipt images to verify (required)")
		ledgerPath = flag.String("ledger", "", "reference table, CSV or XLSX (required)")
		outDir     = flag.String("out", "", "report output directory (defaults to the images dir's parent)")
		workers    = flag.Int("workers", 0, "parallel workers; <=1 means sequential")
		modeStr    = flag.String("mode", "fallback", "extraction mode: fallback | local | remote")
		noCache    = flag.Bool("no-cache", false, "skip cache lookups for this run")
		tolerance  = flag.Float64("tolerance", 0, "email similarity tolerance in (0,1]")
		cachePath  = flag.String("cache", "", "result cache file (defaults to CACHE_PATH)")
		clearCache = flag.Bool("clear-cache", false, "clear the result cache and exit")
		cacheStats = flag.Bool("cache-stats", false, "print cache entry count and exit")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *workers > 0 {
		cfg.Verify.Workers = *workers
	}
	if *tolerance > 0 {
		cfg.Verify.EmailTolerance = *tolerance
	}
	if *cachePath != "" {
		cfg.Cache.Path = *cachePath
	}

	store := cache.NewStore(cfg.Cache.Path, logger)
	if *clearCache {
		if err := store.Clear(); err != nil {
			logger.Error("failed to clear cache", "error", err)
			os.Exit(1)
		}
		fmt.Println("Cache cleared.")
		return
	}
	store.Load()
	if *cacheStats {
		fmt.Printf("Cache entries: %d (%s)\n", store.Len(), cfg.Cache.Path)
		return
	}

	if *imagesDir == "" || *ledgerPath == "" {
		printError("Error: --images and --ledger are required\n")
		flag.Usage()
		os.Exit(1)
	}
	if *outDir == "" {
		*outDir = filepath.Dir(*imagesDir)
	}

	mode, ok := extract.ParseMode(*modeStr)
	if !ok {
		printError("Error: invalid --mode %q, use fallback|local|remote\n", *modeStr)
		os.Exit(1)
	}
	if err := cfg.Validate(mode != extract.ModeLocalOnly); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	records, err := ledger.Load(*ledgerPath, logger)
	if err != nil {
		logger.Error("failed to load ledger", "path", *ledgerPath, "error", err)
		os.Exit(1)
	}
	logger.Info("ledger loaded", "path", *ledgerPath, "orders", len(records))

	images, err := verify.ListImages(*imagesDir)
	if err != nil {
		logger.Error("failed to list images", "dir", *imagesDir, "error", err)
		os.Exit(1)
	}
	if len(images) == 0 {
		printError("Error: no receipt images found in %s\n", *imagesDir)
		os.Exit(1)
	}
	logger.Info("starting verification",
		"images", len(images),
		"mode", mode,
		"workers", cfg.Verify.Workers,
		"use_cache", !*noCache,
		"cached_entries", store.Len(),
	)

	local := ocr.NewExtractor(ocr.Config{
		Tesseract: cfg.OCR.Tesseract,
		Lang:      cfg.OCR.Lang,
	}, logger)
	remote := vision.NewClient(vision.Config{
		APIKey:     cfg.Vision.APIKey,
		BaseURL:    cfg.Vision.BaseURL,
		Model:      cfg.Vision.Model,
		MaxTokens:  cfg.Vision.MaxTokens,
		MaxRetries: cfg.Vision.MaxRetries,
		RetryDelay: cfg.Vision.RetryDelay,
		Timeout:    cfg.Vision.Timeout,
	}, logger)
	tiered := extract.NewTiered(local, remote, logger)

	runner := verify.NewRunner(tiered, store, records, logger)
	bar := progressbar.Default(int64(len(images)), "verifying")
	verdicts, counters := runner.Run(ctx, images, verify.Options{
		Workers:   cfg.Verify.Workers,
		UseCache:  !*noCache,
		Mode:      mode,
		Tolerance: cfg.Verify.EmailTolerance,
	}, func(verify.Verdict) { _ = bar.Add(1) })

	if err := store.Save(); err != nil {
		logger.Warn("failed to save cache", "error", err)
	}

	csvBytes, err := report.WriteCSV(verdicts)
	if err != nil {
		logger.Error("failed to render csv report", "error", err)
		os.Exit(1)
	}
	csvPath := filepath.Join(*outDir, "verification_report.csv")
	if err := os.WriteFile(csvPath, csvBytes, 0o644); err != nil {
		logger.Error("failed to write csv report", "path", csvPath, "error", err)
		os.Exit(1)
	}

	xlsxBytes, err := report.WriteXLSX(verdicts)
	if err != nil {
		logger.Error("failed to render xlsx report", "error", err)
		os.Exit(1)
	}
	xlsxPath := filepath.Join(*outDir, "verification_report.xlsx")
	if err := os.WriteFile(xlsxPath, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write xlsx report", "path", xlsxPath, "error", err)
		os.Exit(1)
	}

	buckets, err := classify.Run(verdicts, *imagesDir, *outDir, logger)
	if err != nil {
		logger.Error("failed to classify images", "error", err)
		os.Exit(1)
	}

	logger.Info("verification complete",
		"ok", counters.OK,
		"partial", counters.Partial,
		"mismatch", counters.Mismatch,
		"not_found", counters.NotFound,
		"local", counters.Local,
		"remote", counters.Remote,
		"from_cache", counters.Cached,
	)

	fmt.Printf("Verification complete!\n")
	fmt.Printf("- OK: %d (partial: %d, mismatch: %d, not found: %d)\n",
		counters.OK, counters.Partial, counters.Mismatch, counters.NotFound)
	fmt.Printf("- Extraction: %d local / %d remote, %d from cache\n",
		counters.Local, counters.Remote, counters.Cached)
	if len(images) > 0 {
		fmt.Printf("- Estimated paid-call savings: %.0f%%\n",
			float64(len(images)-counters.Remote)/float64(len(images))*100)
	}
	fmt.Printf("- Folders: good %d / regular %d / bad %d\n",
		buckets["good"], buckets["regular"], buckets["bad"])
	fmt.Printf("- Reports: %s, %s\n", csvPath, xlsxPath)
}
