// Package report renders the per-image verification results as CSV and XLSX
// documents, one row per processed image.
package report

import (
	"strconv"

	"github.com/smendez-hq/ticket-verifier/internal/verify"
)

// Columns is the report header, in the order operators read it: identity,
// verdict, then extracted-vs-reference per field.
var Columns = []string{
	"file", "status", "order_id", "method",
	"email_extracted", "email_reference", "email_ok", "email_similar", "email_similarity",
	"match_extracted", "match_reference", "match_ok",
	"quantity_extracted", "quantity_reference", "quantity_ok",
	"category_extracted", "category_reference", "category_ok",
	"from_cache", "fallback_used", "error",
}

// Row flattens one verdict into report cells matching Columns.
func Row(v verify.Verdict) []string {
	refEmail, refMatch, refQuantity, refCategory := "", "", "", ""
	if v.Reference != nil {
		refEmail = v.Reference.Email
		refMatch = strconv.Itoa(v.Reference.Match)
		refQuantity = strconv.Itoa(v.Reference.Quantity)
		refCategory = v.Reference.Category
	}

	return []string{
		v.File,
		string(v.Status),
		v.OrderID,
		string(v.Extracted.Method),
		v.Extracted.Email,
		refEmail,
		strconv.FormatBool(v.EmailOK),
		strconv.FormatBool(v.EmailSimilar),
		strconv.FormatFloat(v.SimilarityPct, 'f', 1, 64),
		optInt(v.Extracted.Match),
		refMatch,
		strconv.FormatBool(v.MatchOK),
		optInt(v.Extracted.Quantity),
		refQuantity,
		strconv.FormatBool(v.QuantityOK),
		v.Extracted.Category,
		refCategory,
		strconv.FormatBool(v.CategoryOK),
		strconv.FormatBool(v.Extracted.FromCache),
		strconv.FormatBool(v.Extracted.FallbackUsed),
		v.Extracted.Err,
	}
}

func optInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
