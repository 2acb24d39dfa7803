package ocr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smendez-hq/ticket-verifier/constants"
	"github.com/smendez-hq/ticket-verifier/internal/extract"
)

type stubRunner struct {
	stdout  string
	stderr  string
	err     error
	initErr error
	calls   int
}

func (r *stubRunner) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
	r.calls++
	if len(args) == 1 && args[0] == "--version" {
		return []byte("tesseract 5.3.0"), nil, r.initErr
	}
	return []byte(r.stdout), []byte(r.stderr), r.err
}

func tsvHeader() string {
	return "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext"
}

func tsvRow(text string) string {
	return "5\t1\t1\t1\t1\t1\t10\t10\t50\t20\t96\t" + text
}

func newTestExtractor(r Runner) *Extractor {
	e := NewExtractor(Config{}, nil)
	e.runner = r
	return e
}

func TestExtractParsesTSV(t *testing.T) {
	out := strings.Join([]string{
		tsvHeader(),
		tsvRow("ana@example.com"),
		tsvRow("Match"),
		tsvRow("25"),
		"",
	}, "\n")
	e := newTestExtractor(&stubRunner{stdout: out})

	res := e.Extract(context.Background(), extract.Image{Name: "a.jpg", Path: "/tmp/a.jpg"})

	assert.Empty(t, res.Err)
	assert.Equal(t, "ana@example.com", res.Email)
	require.NotNil(t, res.Match)
	assert.Equal(t, 25, *res.Match)
	assert.Equal(t, constants.MethodLocal, res.Method)
}

func TestExtractSkipsMalformedRows(t *testing.T) {
	out := strings.Join([]string{
		tsvHeader(),
		"too\tfew\tcolumns",
		tsvRow("   "),
		tsvRow("ana@example.com"),
	}, "\n")
	e := newTestExtractor(&stubRunner{stdout: out})

	res := e.Extract(context.Background(), extract.Image{Name: "a.jpg", Path: "/tmp/a.jpg"})

	assert.Equal(t, "ana@example.com", res.Email)
}

func TestExtractBinaryMissing(t *testing.T) {
	e := newTestExtractor(&stubRunner{initErr: errors.New("executable not found")})

	res := e.Extract(context.Background(), extract.Image{Name: "a.jpg"})

	assert.Contains(t, res.Err, "recognizer unavailable")
	assert.Equal(t, constants.MethodLocal, res.Method)
}

func TestExtractProbeRunsOnce(t *testing.T) {
	r := &stubRunner{stdout: tsvHeader() + "\n" + tsvRow("hello")}
	e := newTestExtractor(r)

	e.Extract(context.Background(), extract.Image{Name: "a.jpg"})
	e.Extract(context.Background(), extract.Image{Name: "b.jpg"})

	// one probe plus one recognizer run per image
	assert.Equal(t, 3, r.calls)
}

func TestExtractRecognizerFailure(t *testing.T) {
	e := newTestExtractor(&stubRunner{err: errors.New("exit status 1"), stderr: "could not open image"})

	res := e.Extract(context.Background(), extract.Image{Name: "a.jpg", Path: "/tmp/a.jpg"})

	assert.Contains(t, res.Err, "tesseract")
	assert.Contains(t, res.Err, "could not open image")
}
