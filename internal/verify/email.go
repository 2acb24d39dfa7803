package verify

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultTolerance is the operator-adjustable similarity threshold for
// accepting two emails as the same address.
const DefaultTolerance = 0.90

// CompareEmails compares an extracted email against the ledger email.
// Exact comparison is case-insensitive. Otherwise the similarity is a
// character-sequence ratio over the full strings; when both addresses share a
// domain the local parts are compared on their own and the better of
// max(full, 0.5 + 0.5*localRatio) wins, since most errata are recognizer
// typos inside the user name. The weighting formula is load-bearing: report
// fixtures depend on its exact numeric outputs.
func CompareEmails(extracted, reference string, tolerance float64) (exact, within bool, similarity float64) {
	if extracted == "" || reference == "" {
		return false, false, 0.0
	}

	extracted = strings.ToLower(strings.TrimSpace(extracted))
	reference = strings.ToLower(strings.TrimSpace(reference))

	if extracted == reference {
		return true, true, 1.0
	}

	similarity = ratio(extracted, reference)

	u1, d1, ok1 := splitAddress(extracted)
	u2, d2, ok2 := splitAddress(reference)
	if ok1 && ok2 && d1 == d2 {
		if weighted := 0.5 + 0.5*ratio(u1, u2); weighted > similarity {
			similarity = weighted
		}
	}

	return false, similarity >= tolerance, similarity
}

// ratio is the difflib sequence-matching ratio over individual characters.
func ratio(a, b string) float64 {
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

func chars(s string) []string {
	return strings.Split(s, "")
}

func splitAddress(email string) (user, domain string, ok bool) {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
