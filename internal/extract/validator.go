package extract

import "regexp"

var reEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validation is the outcome of judging a local extraction result.
type Validation struct {
	Valid   bool
	Passed  []string
	Missing []string
}

// Validate decides whether a local result is trustworthy enough to skip the
// paid fallback. Email and match carry the order identity and are required;
// quantity and category are tracked but easy to recover later, so they do not
// gate acceptance.
func Validate(r Result) Validation {
	var v Validation

	if r.Email != "" && reEmail.MatchString(r.Email) {
		v.Passed = append(v.Passed, "email")
	} else {
		v.Missing = append(v.Missing, "email")
	}

	if r.Match != nil && *r.Match >= 1 && *r.Match <= 100 {
		v.Passed = append(v.Passed, "match")
	} else {
		v.Missing = append(v.Missing, "match")
	}

	if r.Quantity != nil && *r.Quantity >= 1 && *r.Quantity <= 20 {
		v.Passed = append(v.Passed, "quantity")
	} else {
		v.Missing = append(v.Missing, "quantity")
	}

	if r.Category != "" {
		v.Passed = append(v.Passed, "category")
	} else {
		v.Missing = append(v.Missing, "category")
	}

	v.Valid = contains(v.Passed, "email") && contains(v.Passed, "match")
	return v
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
