package contracts

import "errors"

// Skip-condition sentinels. These mark local, recoverable outcomes: a
// computation that cannot run yet, not a failed run. Callers count and
// move on; nothing here is process-fatal.
var (
	// ErrInsufficientHistory means too few bars exist for a window
	// computation. The symbol is skipped for the date.
	ErrInsufficientHistory = errors.New("insufficient bar history")

	// ErrMissingBenchmark means the benchmark close for the as-of date
	// is absent or zero, so RS-dependent features cannot be computed.
	ErrMissingBenchmark = errors.New("missing benchmark data")

	// ErrInvalidFeature means a computation produced a non-finite value.
	ErrInvalidFeature = errors.New("invalid feature value")

	// ErrStaleHistory means the bar history does not end on the as-of
	// date; rows are never forward- or backward-filled.
	ErrStaleHistory = errors.New("history does not end on as-of date")

	// ErrInvalidScore means the AI scorer returned a payload that
	// violates the schema or enums. The score is rejected and not cached.
	ErrInvalidScore = errors.New("invalid acceleration score")

	// ErrRiskRejected means sizing produced non-positive risk per share
	// or fewer than one share. No trade, no signal.
	ErrRiskRejected = errors.New("risk sizing rejected")
)

// IsSkip reports whether err is one of the recoverable skip sentinels.
func IsSkip(err error) bool {
	return errors.Is(err, ErrInsufficientHistory) ||
		errors.Is(err, ErrMissingBenchmark) ||
		errors.Is(err, ErrInvalidFeature) ||
		errors.Is(err, ErrStaleHistory)
}
