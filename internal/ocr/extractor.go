package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/smendez-hq/ticket-verifier/constants"
	"github.com/smendez-hq/ticket-verifier/internal/extract"
)

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Lang      string // default "eng"
}

// Extractor wraps the free local recognizer. The engine check runs once per
// process; after that the extractor is safe for concurrent Extract calls.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger

	initOnce sync.Once
	initErr  error
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// init probes the recognizer binary exactly once, even under concurrent first
// use. The probe result is shared by every subsequent call.
func (e *Extractor) init(ctx context.Context) error {
	e.initOnce.Do(func() {
		if _, _, err := e.runner.Run(ctx, e.cfg.Tesseract, "--version"); err != nil {
			e.initErr = fmt.Errorf("recognizer unavailable (%s): %w", e.cfg.Tesseract, err)
			return
		}
		e.logger.Debug("recognizer ready", "binary", e.cfg.Tesseract, "lang", e.cfg.Lang)
	})
	return e.initErr
}

// Extract runs the recognizer on one image and searches the recognized text
// for the four receipt fields. Recognizer failures are captured in the result,
// never raised.
func (e *Extractor) Extract(ctx context.Context, img extract.Image) extract.Result {
	if err := e.init(ctx); err != nil {
		return extract.Result{Method: constants.MethodLocal, Err: err.Error()}
	}

	fragments, err := e.recognize(ctx, img.Path)
	if err != nil {
		e.logger.Warn("local recognition failed", "file", img.Name, "error", err)
		return extract.Result{Method: constants.MethodLocal, Err: err.Error()}
	}

	return ParseFields(fragments)
}

// recognize runs the recognizer in TSV mode and returns the recognized text
// fragments in reading order.
func (e *Extractor) recognize(ctx context.Context, path string) ([]string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.Lang, "tsv")
	if err != nil {
		return nil, fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 512))
	}

	lines := strings.Split(string(out), "\n")
	var fragments []string
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue // skip header
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		text := strings.TrimSpace(cols[len(cols)-1])
		if text == "" {
			continue
		}
		fragments = append(fragments, text)
	}
	return fragments, nil
}
