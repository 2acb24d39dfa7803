package ocr

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/smendez-hq/ticket-verifier/constants"
	"github.com/smendez-hq/ticket-verifier/internal/extract"
)

// The field rules are ordered lists: the first pattern that matches wins,
// so precedence stays auditable rule by rule.

var reEmailScan = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// System-sender addresses that must never be taken as the transfer recipient.
var emailDenyList = []string{"noreply", "support", "fifa", "ticket"}

var matchRules = []*regexp.Regexp{
	regexp.MustCompile(`match\s*(\d{1,3})`),
	regexp.MustCompile(`match\s*#\s*(\d{1,3})`),
	regexp.MustCompile(`partido\s*(\d{1,3})`),
}

var quantityRules = []*regexp.Regexp{
	regexp.MustCompile(`(\d+)\s*tickets?\s*selected`),
	regexp.MustCompile(`(\d+)\s*tickets?`),
	regexp.MustCompile(`transfer\s*(\d+)`),
	regexp.MustCompile(`(\d+)\s*entradas?`),
}

var categoryRules = []*regexp.Regexp{
	regexp.MustCompile(`category\s*(\d+)`),
	regexp.MustCompile(`cat\.?\s*(\d+)`),
	regexp.MustCompile(`categoria\s*(\d+)`),
}

const rawTextLimit = 500

// ParseFields searches recognized text fragments for the four receipt fields.
func ParseFields(fragments []string) extract.Result {
	joined := strings.Join(fragments, " ")
	lowered := strings.ToLower(joined)

	res := extract.Result{
		Method:  constants.MethodLocal,
		RawText: clip(lowered, rawTextLimit),
	}

	res.Email = findEmail(joined)

	for _, re := range matchRules {
		if m := re.FindStringSubmatch(lowered); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				res.Match = extract.IntPtr(n)
			}
			break
		}
	}

	for _, re := range quantityRules {
		if m := re.FindStringSubmatch(lowered); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			// plausible ticket counts only; otherwise try the next rule
			if n >= 1 && n <= 20 {
				res.Quantity = extract.IntPtr(n)
				break
			}
		}
	}

	for _, re := range categoryRules {
		if m := re.FindStringSubmatch(lowered); m != nil {
			res.Category = "Category " + m[1]
			break
		}
	}

	return res
}

// findEmail returns the first recognized address that is not a system sender,
// falling back to the first address found when every candidate is denied.
func findEmail(text string) string {
	found := reEmailScan.FindAllString(text, -1)
	if len(found) == 0 {
		return ""
	}
	for _, e := range found {
		lower := strings.ToLower(e)
		if !denied(lower) {
			return lower
		}
	}
	return strings.ToLower(found[0])
}

func denied(email string) bool {
	for _, s := range emailDenyList {
		if strings.Contains(email, s) {
			return true
		}
	}
	return false
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
