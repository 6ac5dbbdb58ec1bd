package validity

import "errors"

// Calculation errors. All are boundary rejections: callers constructing
// orders catch these per candidate and continue with the rest of the batch.
var (
	// ErrInvalidTimestamp is returned for naive or zero signal timestamps.
	ErrInvalidTimestamp = errors.New("signal timestamp must be timezone-aware")

	// ErrOutsideSession is returned when valid_from falls outside all
	// session windows and the policy needs a session.
	ErrOutsideSession = errors.New("valid_from falls outside all session windows")

	// ErrMissingProvider is returned when the eod policy runs without an
	// injected end-of-day provider.
	ErrMissingProvider = errors.New("eod policy requires an end-of-day provider")

	// ErrUnknownPolicy is returned for a policy value outside the enum.
	ErrUnknownPolicy = errors.New("unknown validity policy")

	// ErrZeroOrNegativeWindow is the universal post-condition violation:
	// valid_to must be strictly after valid_from. Callers treat this as
	// "reject this candidate order", never as a fatal run error.
	ErrZeroOrNegativeWindow = errors.New("validity window has zero or negative duration")
)
