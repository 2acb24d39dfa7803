package extract

import (
	"context"
	"log/slog"

	"github.com/smendez-hq/ticket-verifier/constants"
)

// Mode selects which extractors a run may use.
type Mode string

const (
	// ModeFallback tries the free local recognizer first and pays for the
	// vision service only when validation rejects the local result.
	ModeFallback Mode = "fallback"
	// ModeLocalOnly never calls the paid service.
	ModeLocalOnly Mode = "local"
	// ModeRemoteOnly skips the local recognizer entirely.
	ModeRemoteOnly Mode = "remote"
)

// ParseMode maps a CLI flag value onto a Mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeFallback, ModeLocalOnly, ModeRemoteOnly:
		return Mode(s), true
	}
	return "", false
}

// Tiered composes the local recognizer, the validator and the paid vision
// client into one fallback decision.
type Tiered struct {
	local  Extractor
	remote Extractor
	logger *slog.Logger
}

func NewTiered(local, remote Extractor, logger *slog.Logger) *Tiered {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tiered{local: local, remote: remote, logger: logger}
}

// Extract runs the fallback decision for one image.
func (t *Tiered) Extract(ctx context.Context, img Image, mode Mode) Result {
	switch mode {
	case ModeRemoteOnly:
		return t.remote.Extract(ctx, img)
	case ModeLocalOnly:
		return t.local.Extract(ctx, img)
	}

	res := t.local.Extract(ctx, img)
	v := Validate(res)
	if v.Valid {
		res.FallbackUsed = false
		return res
	}

	t.logger.Debug("local extraction rejected, using vision fallback",
		"file", img.Name,
		"passed", v.Passed,
		"missing", v.Missing,
	)

	out := t.remote.Extract(ctx, img)
	out.FallbackUsed = true
	out.Method = constants.MethodRemoteFallback
	out.LocalFields = v.Passed
	return out
}
