package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxRetryAfter  = 5 * time.Second
)

// orsError is a non-2xx directions answer. Code carries the ORS error code
// from the body when there is one (2009 no route, 2010 point not routable).
type orsError struct {
	Status     int
	Code       int
	Message    string
	RetryAfter time.Duration
}

func (e *orsError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("ors status %d code %d: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("ors status %d: %s", e.Status, e.Message)
}

// Only throttling and server faults are worth another attempt. A routing
// error for the same coordinates will not change on retry.
func (e *orsError) transient() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func (o *ORSOracle) directionsURL() string {
	return fmt.Sprintf("%s/v2/directions/%s", o.baseURL, url.PathEscape(o.profile))
}

func (o *ORSOracle) newDirectionsRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.directionsURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create directions request: %w", err)
	}

	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json, application/geo+json; charset=utf-8")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	return req, nil
}

func (o *ORSOracle) send(req *http.Request) (*http.Response, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	e := &orsError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}

	var body struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
		e.Code, e.Message = body.Error.Code, body.Error.Message
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		e.RetryAfter = time.Duration(secs) * time.Second
	}

	return nil, e
}

// postDirections sends one directions query, retrying transient failures
// up to maxAttempts with exponential backoff or the server's Retry-After.
func (o *ORSOracle) postDirections(ctx context.Context, payload []byte) (*http.Response, error) {
	attempts := max(o.maxAttempts, 1)
	backoff := initialBackoff

	for attempt := 1; ; attempt++ {
		req, err := o.newDirectionsRequest(ctx, payload)
		if err != nil {
			return nil, err
		}

		resp, err := o.send(req)
		if err == nil {
			return resp, nil
		}

		wait, ok := retryDelay(err, backoff)
		if !ok || attempt >= attempts || ctx.Err() != nil {
			return nil, err
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

func retryDelay(err error, backoff time.Duration) (time.Duration, bool) {
	var oe *orsError
	if errors.As(err, &oe) {
		if !oe.transient() {
			return 0, false
		}
		if oe.RetryAfter > backoff {
			return min(oe.RetryAfter, maxRetryAfter), true
		}
		return backoff, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return backoff, true
	}
	return 0, false
}
