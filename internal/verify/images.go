package verify

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/smendez-hq/ticket-verifier/constants"
	"github.com/smendez-hq/ticket-verifier/internal/extract"
)

// ListImages collects the receipt images in a directory, sorted by name.
// Image bytes are read once here and reused for hashing and the vision call.
func ListImages(dir string) ([]extract.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read images dir: %w", err)
	}

	var images []extract.Image
	for _, e := range entries {
		if e.IsDir() || !constants.IsAllowedExt(filepath.Ext(e.Name())) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", e.Name(), err)
		}
		images = append(images, extract.NewImage(path, data))
	}

	sort.Slice(images, func(i, j int) bool { return images[i].Name < images[j].Name })
	return images, nil
}
