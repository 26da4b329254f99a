package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOffers is returned when an order book has no usable price.
	ErrNoOffers = errors.New("no valid offers")
	// ErrMalformed is returned when an expected field is missing or not numeric.
	ErrMalformed = errors.New("malformed response")
)

// FailureKind classifies why an adapter call produced no quote.
type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureStatus    FailureKind = "status"
	FailureMalformed FailureKind = "malformed"
)

// Failure is the typed result of an unsuccessful adapter call.
// Transport and malformed failures are handled the same way by the aggregate.
type Failure struct {
	Source SourceID
	Side   Side
	Kind   FailureKind
	Err    error
}

func (f *Failure) Error() string {
	if f.Side != "" {
		return fmt.Sprintf("%s %s: %s: %v", f.Source, f.Side, f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s: %v", f.Source, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Transport wraps a network, timeout or request construction error.
func Transport(src SourceID, side Side, err error) *Failure {
	return &Failure{Source: src, Side: side, Kind: FailureTransport, Err: err}
}

// Status reports a non-2xx upstream response.
func Status(src SourceID, side Side, method, url string, code int, body string) *Failure {
	return &Failure{Source: src, Side: side, Kind: FailureStatus, Err: fmt.Errorf("%s %s -> %d: %s", method, url, code, body)}
}

// Malformed reports a body that decoded but lacks the expected fields.
func Malformed(src SourceID, side Side, err error) *Failure {
	if err == nil {
		err = ErrMalformed
	} else if !errors.Is(err, ErrMalformed) && !errors.Is(err, ErrNoOffers) {
		err = fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &Failure{Source: src, Side: side, Kind: FailureMalformed, Err: err}
}
