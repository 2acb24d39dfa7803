package verify

import (
	"strings"
	"unicode"

	"github.com/smendez-hq/ticket-verifier/constants"
	"github.com/smendez-hq/ticket-verifier/internal/extract"
	"github.com/smendez-hq/ticket-verifier/internal/ledger"
)

// Verdict is the per-image outcome handed to the classifier and report
// writers. It is created once per image per run and never mutated after.
type Verdict struct {
	File    string
	OrderID string
	Status  constants.Status

	Extracted extract.Result
	Reference *ledger.Record // nil when the order id is not in the ledger

	EmailOK       bool
	EmailSimilar  bool    // within tolerance but not exact
	SimilarityPct float64 // 0..100, one decimal

	MatchOK    bool
	QuantityOK bool
	CategoryOK bool
}

// Compare reconciles one extraction result against the ledger row for its
// order. An order id absent from the ledger is NOT_FOUND regardless of field
// quality, with every *_ok comparison false.
func Compare(img extract.Image, res extract.Result, records map[string]ledger.Record, tolerance float64) Verdict {
	v := Verdict{
		File:      img.Name,
		OrderID:   img.OrderID,
		Extracted: res,
	}

	ref, ok := records[img.OrderID]
	if !ok {
		v.Status = constants.StatusNotFound
		return v
	}
	v.Reference = &ref

	exact, within, sim := CompareEmails(res.Email, ref.Email, tolerance)
	v.EmailOK = exact
	v.EmailSimilar = within && !exact
	v.SimilarityPct = roundPct(sim)

	v.MatchOK = res.Match != nil && *res.Match == ref.Match
	v.QuantityOK = res.Quantity != nil && *res.Quantity == ref.Quantity
	v.CategoryOK = categoryEqual(res.Category, ref.Category)

	emailValid := exact || within
	switch {
	case emailValid && v.MatchOK && v.QuantityOK && v.CategoryOK:
		if exact {
			v.Status = constants.StatusOK
		} else {
			v.Status = constants.StatusOKSimilar
		}
	case emailValid:
		v.Status = constants.StatusPartial
	default:
		v.Status = constants.StatusMismatch
	}
	return v
}

// categoryEqual compares only the digit substrings, so "Category 3" and "3"
// are equivalent. An empty extracted category never matches.
func categoryEqual(extracted, reference string) bool {
	a := digits(extracted)
	if a == "" {
		return false
	}
	return a == digits(reference)
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func roundPct(sim float64) float64 {
	return float64(int(sim*1000+0.5)) / 10
}
