package distance

import (
	"fmt"
	"route-planning-service/internal/domain"
)

// OracleError describes a failed or degenerate measurement. It matches
// domain.ErrOracle under errors.Is.
type OracleError struct {
	Origin      domain.Coordinates
	Destination domain.Coordinates
	Reason      string
	Err         error
}

func (e *OracleError) Error() string {
	msg := fmt.Sprintf("distance oracle %s -> %s: %s", e.Origin.Key(), e.Destination.Key(), e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OracleError) Unwrap() []error {
	if e.Err == nil {
		return []error{domain.ErrOracle}
	}
	return []error{domain.ErrOracle, e.Err}
}
