package constants

// Status is the canonical verification verdict for a processed receipt.
type Status string

// Stable values (these exact strings appear in reports).
const (
	StatusOK        Status = "OK"         // every field matched, email exact
	StatusOKSimilar Status = "OK_SIMILAR" // every field matched, email within tolerance
	StatusPartial   Status = "PARTIAL"    // email matched but some other field did not
	StatusMismatch  Status = "MISMATCH"   // email did not match
	StatusNotFound  Status = "NOT_FOUND"  // order id absent from the reference ledger
)

// Bucket is the classification folder a receipt image is routed into.
type Bucket string

const (
	BucketGood    Bucket = "good"
	BucketRegular Bucket = "regular"
	BucketBad     Bucket = "bad"
)

// Buckets lists every classification folder.
var Buckets = []Bucket{BucketGood, BucketRegular, BucketBad}

// BucketFor maps a verdict status onto its classification folder.
func BucketFor(s Status) Bucket {
	switch s {
	case StatusOK, StatusOKSimilar:
		return BucketGood
	case StatusPartial:
		return BucketRegular
	default:
		return BucketBad
	}
}

// Method identifies which extractor produced a result.
type Method string

const (
	MethodLocal          Method = "LOCAL"           // free local recognizer
	MethodRemote         Method = "REMOTE"          // paid vision service, called directly
	MethodRemoteFallback Method = "REMOTE_FALLBACK" // paid vision service, after local failed validation
)

// IsRemote reports whether the paid vision service produced the result.
func (m Method) IsRemote() bool {
	return m == MethodRemote || m == MethodRemoteFallback
}
