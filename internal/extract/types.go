package extract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/smendez-hq/ticket-verifier/constants"
)

// Image is one receipt screenshot submitted to the pipeline. The order id is
// the file name without its extension and joins the image to the ledger.
type Image struct {
	Path    string
	Name    string
	OrderID string
	Data    []byte
}

// NewImage derives the name and order id from a path.
func NewImage(path string, data []byte) Image {
	name := filepath.Base(path)
	return Image{
		Path:    path,
		Name:    name,
		OrderID: strings.TrimSuffix(name, filepath.Ext(name)),
		Data:    data,
	}
}

// Result is a field extraction outcome from either extractor. Pointer fields
// distinguish "absent" from a zero value; Err is set instead of returning an
// error so one bad image never aborts a batch.
type Result struct {
	Email    string
	Match    *int
	Quantity *int
	Category string

	Method  constants.Method
	RawText string // recognized text kept for debugging, local method only
	Retries int
	Err     string

	FallbackUsed bool
	// LocalFields lists the fields the local pass did recover when the
	// remote fallback was used, for diagnostics.
	LocalFields []string

	FromCache bool
}

// Extractor is the contract both the local recognizer and the paid vision
// client satisfy.
type Extractor interface {
	Extract(ctx context.Context, img Image) Result
}

// IntPtr is a convenience for building results and fixtures.
func IntPtr(v int) *int { return &v }
