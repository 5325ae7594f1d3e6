package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/fxgest/internal/internalerr"
)

// IsRetryable reports whether a document failure may succeed on another
// read. Parse failures are deterministic and never retried.
func IsRetryable(err error) bool {
	return errors.Is(err, internalerr.ErrDocumentRead) && !errors.Is(err, internalerr.ErrNotFound)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 250 * time.Millisecond
	if base > 10*time.Second {
		base = 10 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}
