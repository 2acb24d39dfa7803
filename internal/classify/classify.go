// Package classify routes processed receipt images into outcome folders.
package classify

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/smendez-hq/ticket-verifier/constants"
	"github.com/smendez-hq/ticket-verifier/internal/verify"
)

// Run copies every image into the outcome folder for its verdict, under
// reportDir: good/, regular/ and bad/. Prior run contents are replaced
// entirely, so re-classification is idempotent. Returns per-bucket counts.
func Run(verdicts []verify.Verdict, imagesDir, reportDir string, logger *slog.Logger) (map[constants.Bucket]int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, b := range constants.Buckets {
		dir := filepath.Join(reportDir, string(b))
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("reset %s folder: %w", b, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s folder: %w", b, err)
		}
	}

	counts := make(map[constants.Bucket]int, len(constants.Buckets))
	for _, v := range verdicts {
		bucket := constants.BucketFor(v.Status)
		src := filepath.Join(imagesDir, v.File)
		dst := filepath.Join(reportDir, string(bucket), v.File)
		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("classify %s: %w", v.File, err)
		}
		counts[bucket]++
	}

	logger.Info("classification complete",
		"good", counts[constants.BucketGood],
		"regular", counts[constants.BucketRegular],
		"bad", counts[constants.BucketBad],
	)
	return counts, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
