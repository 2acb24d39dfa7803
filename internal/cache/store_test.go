package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smendez-hq/ticket-verifier/constants"
	"github.com/smendez-hq/ticket-verifier/internal/extract"
)

func testImage() extract.Image {
	return extract.Image{Name: "100045.jpg", OrderID: "100045", Data: []byte("image-bytes")}
}

func TestKeyIsContentAddressed(t *testing.T) {
	a := Key([]byte("same"))
	b := Key([]byte("same"))
	c := Key([]byte("different"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nope.json"), nil)
	s.Load()
	assert.Equal(t, 0, s.Len())
}

func TestLoadCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewStore(path, nil)
	s.Load()
	assert.Equal(t, 0, s.Len())
}

func TestGetOrExtractCachesCleanResults(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "cache.json"), nil)
	calls := 0
	fn := func(_ context.Context, _ extract.Image) extract.Result {
		calls++
		return extract.Result{
			Email:  "ana@x.com",
			Match:  extract.IntPtr(25),
			Method: constants.MethodRemote,
		}
	}

	first := s.GetOrExtract(context.Background(), testImage(), true, fn)
	second := s.GetOrExtract(context.Background(), testImage(), true, fn)

	assert.Equal(t, 1, calls, "second lookup must not re-extract")
	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Email, second.Email)
	assert.Equal(t, constants.MethodRemote, second.Method)
}

func TestGetOrExtractNeverCachesErrors(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "cache.json"), nil)
	calls := 0
	fn := func(_ context.Context, _ extract.Image) extract.Result {
		calls++
		return extract.Result{Err: "vision timeout"}
	}

	s.GetOrExtract(context.Background(), testImage(), true, fn)
	s.GetOrExtract(context.Background(), testImage(), true, fn)

	assert.Equal(t, 2, calls, "failed extractions must be retried")
	assert.Equal(t, 0, s.Len())
}

func TestGetOrExtractBypassStillStores(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "cache.json"), nil)
	calls := 0
	fn := func(_ context.Context, _ extract.Image) extract.Result {
		calls++
		return extract.Result{Email: "ana@x.com", Method: constants.MethodLocal}
	}

	s.GetOrExtract(context.Background(), testImage(), false, fn)
	assert.Equal(t, 1, s.Len())

	res := s.GetOrExtract(context.Background(), testImage(), true, fn)
	assert.Equal(t, 1, calls)
	assert.True(t, res.FromCache)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s := NewStore(path, nil)
	s.GetOrExtract(context.Background(), testImage(), true, func(_ context.Context, _ extract.Image) extract.Result {
		return extract.Result{
			Email:    "ana@x.com",
			Match:    extract.IntPtr(25),
			Quantity: extract.IntPtr(4),
			Category: "Category 3",
			Method:   constants.MethodRemoteFallback,
		}
	})
	require.NoError(t, s.Save())

	reloaded := NewStore(path, nil)
	reloaded.Load()
	require.Equal(t, 1, reloaded.Len())

	res := reloaded.GetOrExtract(context.Background(), testImage(), true, func(_ context.Context, _ extract.Image) extract.Result {
		t.Fatal("must hit the persisted entry")
		return extract.Result{}
	})
	assert.True(t, res.FromCache)
	assert.Equal(t, "ana@x.com", res.Email)
	require.NotNil(t, res.Match)
	assert.Equal(t, 25, *res.Match)
	assert.Equal(t, constants.MethodRemoteFallback, res.Method)
}

func TestClearRemovesEntriesAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s := NewStore(path, nil)
	s.GetOrExtract(context.Background(), testImage(), true, func(_ context.Context, _ extract.Image) extract.Result {
		return extract.Result{Email: "ana@x.com"}
	})
	require.NoError(t, s.Save())

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Len())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Clearing an already-missing file is not an error.
	require.NoError(t, s.Clear())
}
