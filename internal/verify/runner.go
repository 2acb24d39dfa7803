package verify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/smendez-hq/ticket-verifier/constants"
	"github.com/smendez-hq/ticket-verifier/internal/cache"
	"github.com/smendez-hq/ticket-verifier/internal/extract"
	"github.com/smendez-hq/ticket-verifier/internal/ledger"
)

// Counters aggregates live run metrics. Owned by one Run call; every worker
// updates it through the runner's mutex.
type Counters struct {
	OK       int
	Partial  int
	Mismatch int
	NotFound int
	Local    int
	Remote   int
	Cached   int
}

// Options configures one batch run.
type Options struct {
	Workers   int // <=1 means sequential
	UseCache  bool
	Mode      extract.Mode
	Tolerance float64
}

// Runner drives many images through extraction, caching and comparison.
// Each image is processed to completion independently; the only shared state
// is the cache and the counters.
type Runner struct {
	tiered  *extract.Tiered
	store   *cache.Store
	records map[string]ledger.Record
	logger  *slog.Logger
}

func NewRunner(tiered *extract.Tiered, store *cache.Store, records map[string]ledger.Record, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{tiered: tiered, store: store, records: records, logger: logger}
}

// Run processes every image and returns the verdicts sorted by file name,
// so the report ordering is reproducible even though parallel completion
// order is not. The progress callback, when set, fires once per completed
// image from whichever goroutine finished it. Per-image failures are encoded
// into the verdict; a run always completes for all submitted images.
func (r *Runner) Run(ctx context.Context, images []extract.Image, opts Options, progress func(Verdict)) ([]Verdict, Counters) {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.Mode == "" {
		opts.Mode = extract.ModeFallback
	}

	verdicts := make([]Verdict, 0, len(images))
	var counters Counters
	var mu sync.Mutex

	collect := func(v Verdict) {
		mu.Lock()
		verdicts = append(verdicts, v)
		counters.add(v)
		mu.Unlock()

		r.logger.Info("image processed",
			"file", v.File,
			"status", v.Status,
			"method", v.Extracted.Method,
			"from_cache", v.Extracted.FromCache,
			"fallback", v.Extracted.FallbackUsed,
		)
		if progress != nil {
			progress(v)
		}
	}

	if opts.Workers > 1 {
		jobs := make(chan extract.Image)
		var wg sync.WaitGroup
		for i := 0; i < opts.Workers; i++ {
			wg.Add(1)
			go func(workerID int) {
				defer wg.Done()
				for img := range jobs {
					collect(r.processOne(ctx, img, opts))
				}
			}(i + 1)
		}
		for _, img := range images {
			jobs <- img
		}
		close(jobs)
		wg.Wait()
	} else {
		for _, img := range images {
			collect(r.processOne(ctx, img, opts))
		}
	}

	sort.Slice(verdicts, func(i, j int) bool { return verdicts[i].File < verdicts[j].File })
	return verdicts, counters
}

// processOne runs the full pipeline for a single image. A panic anywhere in
// the per-image path degrades to a verdict with the error recorded, so one
// image can never abort the batch.
func (r *Runner) processOne(ctx context.Context, img extract.Image, opts Options) (v Verdict) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("image processing panic", "file", img.Name, "panic", rec)
			res := extract.Result{Err: fmt.Sprintf("panic: %v", rec)}
			v = Compare(img, res, r.records, opts.Tolerance)
		}
	}()

	res := r.store.GetOrExtract(ctx, img, opts.UseCache, func(ctx context.Context, img extract.Image) extract.Result {
		return r.tiered.Extract(ctx, img, opts.Mode)
	})
	return Compare(img, res, r.records, opts.Tolerance)
}

func (c *Counters) add(v Verdict) {
	switch v.Status {
	case constants.StatusOK, constants.StatusOKSimilar:
		c.OK++
	case constants.StatusPartial:
		c.Partial++
	case constants.StatusNotFound:
		c.NotFound++
	default:
		c.Mismatch++
	}

	// a cache hit replays the stored method into the method counters
	if v.Extracted.Method.IsRemote() {
		c.Remote++
	} else if v.Extracted.Method == constants.MethodLocal {
		c.Local++
	}
	if v.Extracted.FromCache {
		c.Cached++
	}
}
