// Package errs defines the error taxonomy shared across the platform so
// callers can branch on kind with errors.Is instead of parsing messages.
package errs

import "errors"

// Kind classifies a failure the way callers need to react to it, not how
// it happened to be raised.
type Kind int

const (
	Configuration Kind = iota
	Persistence
	RemoteFeed
	Validation
	StrategyLifecycle
	Trading
	Internal
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Persistence:
		return "persistence"
	case RemoteFeed:
		return "remote_feed"
	case Validation:
		return "validation"
	case StrategyLifecycle:
		return "strategy_lifecycle"
	case Trading:
		return "trading"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Sentinel errors for errors.Is comparisons; wrap these with fmt.Errorf("...: %w", ErrX).
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrPersistence       = errors.New("persistence error")
	ErrRemoteFeed        = errors.New("remote feed error")
	ErrValidation        = errors.New("validation error")
	ErrStrategyLifecycle = errors.New("strategy lifecycle error")
	ErrTrading           = errors.New("trading error")
	ErrInternal          = errors.New("internal invariant violation")
)

// E is a structured error carrying a Kind plus whether a caller may retry.
type E struct {
	Kind      Kind
	Retryable bool
	Err       error
}

func (e *E) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *E) Unwrap() error { return e.Err }

// New wraps err with a Kind. Retryable should be true only for
// transient categories: feed timeouts, connection timeouts,
// network-unavailable, rate-limit.
func New(k Kind, retryable bool, err error) *E {
	return &E{Kind: k, Retryable: retryable, Err: err}
}

// Is lets errors.Is(err, errs.ErrRemoteFeed) work against an *E of kind
// RemoteFeed regardless of the wrapped cause.
func (e *E) Is(target error) bool {
	switch e.Kind {
	case Configuration:
		return target == ErrConfiguration
	case Persistence:
		return target == ErrPersistence
	case RemoteFeed:
		return target == ErrRemoteFeed
	case Validation:
		return target == ErrValidation
	case StrategyLifecycle:
		return target == ErrStrategyLifecycle
	case Trading:
		return target == ErrTrading
	case Internal:
		return target == ErrInternal
	}
	return false
}

// IsRetryable reports whether err (or anything it wraps) was marked
// retryable when constructed.
func IsRetryable(err error) bool {
	var e *E
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to Internal if err was not
// constructed with New.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
