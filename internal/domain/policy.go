package domain

// ValidityPolicy maps a (signal_ts, valid_from) pair to an order expiry.
type ValidityPolicy string

// Validity policy constants.
//
// PolicyEOD means "end of trading day via an injected provider". The source
// material also proposed "end of last session" and "end of available backtest
// data" for EOD; those readings were never resolved and are intentionally not
// implemented here.
const (
	PolicyOneBar         ValidityPolicy = "one_bar"
	PolicySessionEnd     ValidityPolicy = "session_end"
	PolicyFixedMinutes   ValidityPolicy = "fixed_minutes"
	PolicyEOD            ValidityPolicy = "eod"
	PolicyGoodTillCancel ValidityPolicy = "good_till_cancel"
)

// ValidFromPolicy selects how an order's valid_from is derived.
type ValidFromPolicy string

// Valid-from policy constants.
const (
	ValidFromSignal      ValidFromPolicy = "signal_ts"
	ValidFromNextBarOpen ValidFromPolicy = "next_bar_open"
)
