package report

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/smendez-hq/ticket-verifier/internal/verify"
)

// WriteCSV renders the verification report as CSV bytes.
func WriteCSV(verdicts []verify.Verdict) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, v := range verdicts {
		if err := w.Write(Row(v)); err != nil {
			return nil, fmt.Errorf("write row %s: %w", v.File, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
