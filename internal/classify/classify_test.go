package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smendez-hq/ticket-verifier/constants"
	"github.com/smendez-hq/ticket-verifier/internal/verify"
)

func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("img-"+n), 0o644))
	}
}

func TestRunRoutesByStatus(t *testing.T) {
	imagesDir := t.TempDir()
	reportDir := t.TempDir()
	writeImages(t, imagesDir, "a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg")

	verdicts := []verify.Verdict{
		{File: "a.jpg", Status: constants.StatusOK},
		{File: "b.jpg", Status: constants.StatusOKSimilar},
		{File: "c.jpg", Status: constants.StatusPartial},
		{File: "d.jpg", Status: constants.StatusMismatch},
		{File: "e.jpg", Status: constants.StatusNotFound},
	}

	counts, err := Run(verdicts, imagesDir, reportDir, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, counts[constants.BucketGood])
	assert.Equal(t, 1, counts[constants.BucketRegular])
	assert.Equal(t, 2, counts[constants.BucketBad])

	assert.FileExists(t, filepath.Join(reportDir, "good", "a.jpg"))
	assert.FileExists(t, filepath.Join(reportDir, "good", "b.jpg"))
	assert.FileExists(t, filepath.Join(reportDir, "regular", "c.jpg"))
	assert.FileExists(t, filepath.Join(reportDir, "bad", "d.jpg"))
	assert.FileExists(t, filepath.Join(reportDir, "bad", "e.jpg"))

	data, err := os.ReadFile(filepath.Join(reportDir, "good", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "img-a.jpg", string(data))
}

func TestRunIsIdempotent(t *testing.T) {
	imagesDir := t.TempDir()
	reportDir := t.TempDir()
	writeImages(t, imagesDir, "a.jpg")

	_, err := Run([]verify.Verdict{{File: "a.jpg", Status: constants.StatusMismatch}}, imagesDir, reportDir, nil)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(reportDir, "bad", "a.jpg"))

	// a later run reflects the new verdict only
	counts, err := Run([]verify.Verdict{{File: "a.jpg", Status: constants.StatusOK}}, imagesDir, reportDir, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, counts[constants.BucketGood])
	assert.FileExists(t, filepath.Join(reportDir, "good", "a.jpg"))
	assert.NoFileExists(t, filepath.Join(reportDir, "bad", "a.jpg"))
}

func TestRunMissingSourceImage(t *testing.T) {
	imagesDir := t.TempDir()
	reportDir := t.TempDir()

	_, err := Run([]verify.Verdict{{File: "ghost.jpg", Status: constants.StatusOK}}, imagesDir, reportDir, nil)
	assert.Error(t, err)
}

func TestRunEmptyBatchCreatesFolders(t *testing.T) {
	reportDir := t.TempDir()

	counts, err := Run(nil, t.TempDir(), reportDir, nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
	for _, b := range constants.Buckets {
		assert.DirExists(t, filepath.Join(reportDir, string(b)))
	}
}
