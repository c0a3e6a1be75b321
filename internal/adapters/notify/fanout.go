package notify

import (
	"context"
	"errors"
	"route-planning-service/internal/ports"
)

// CargoFanOut forwards every cargo state to all trackers. One tracker
// failing does not stop the others; their errors are joined.
type CargoFanOut []ports.CargoTracker

func (f CargoFanOut) SetCargoState(ctx context.Context, requestID int64, state string) error {
	var errs []error
	for _, t := range f {
		if err := t.SetCargoState(ctx, requestID, state); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
