package notify

import (
	"context"
	"fmt"
	"net/http"
	"route-planning-service/internal/platform/obs"
	"time"

	"github.com/google/uuid"
)

// CargoEvent is the payload sent for every cargo state change.
type CargoEvent struct {
	EventID    string    `json:"event_id"`
	RequestID  int64     `json:"request_id"`
	State      string    `json:"state"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newCargoEvent(requestID int64, state string) CargoEvent {
	return CargoEvent{
		EventID:    uuid.NewString(),
		RequestID:  requestID,
		State:      state,
		OccurredAt: time.Now().UTC(),
	}
}

// HTTPCargoTracker posts cargo state changes to the cargo service.
type HTTPCargoTracker struct {
	client jsonClient
}

func NewHTTPCargoTracker(baseURL string, session *http.Client) *HTTPCargoTracker {
	return &HTTPCargoTracker{client: newJSONClient(baseURL, session)}
}

func (t *HTTPCargoTracker) SetCargoState(ctx context.Context, requestID int64, state string) (err error) {
	defer obs.Time(ctx, "cargo.SetCargoState")(&err)
	defer countNotification("cargo.state", &err)

	return t.client.do(ctx, http.MethodPost, fmt.Sprintf("/cargo/%d/state", requestID), newCargoEvent(requestID, state), nil)
}
