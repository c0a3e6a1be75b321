package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/metrics"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
	"strings"
	"time"
)

// ORSOracle implements DistanceOracle using the OpenRouteService directions API.
// It does not retry unless constructed with more than one attempt.
//
// The oracle is safe for concurrent use.
type ORSOracle struct {
	session     *http.Client
	apiKey      string
	baseURL     string
	profile     string
	maxAttempts int
}

type ORSOption func(*ORSOracle)

func WithBaseURL(u string) ORSOption {
	return func(o *ORSOracle) { o.baseURL = strings.TrimRight(u, "/") }
}

func WithProfile(p string) ORSOption {
	return func(o *ORSOracle) { o.profile = p }
}

// WithMaxAttempts enables retry with backoff on transient failures.
func WithMaxAttempts(n int) ORSOption {
	return func(o *ORSOracle) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

func WithHTTPClient(c *http.Client) ORSOption {
	return func(o *ORSOracle) { o.session = c }
}

func NewORSOracle(apiKey string, opts ...ORSOption) (*ORSOracle, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}

	oracle := &ORSOracle{
		session:     &http.Client{Timeout: 10 * time.Second},
		apiKey:      apiKey,
		baseURL:     "https://api.openrouteservice.org",
		profile:     "driving-hgv",
		maxAttempts: 1,
	}
	for _, opt := range opts {
		opt(oracle)
	}

	return oracle, nil
}

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance *float64 `json:"distance"`
			Duration *float64 `json:"duration"`
		} `json:"summary"`
		Geometry string `json:"geometry"`
	} `json:"routes"`
}

// Measure one origin -> destination leg. Distances come back in meters and
// seconds and are converted to km and hours.
func (o *ORSOracle) Measure(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (_ ports.Measurement, err error) {
	defer obs.Time(ctx, "ors.Measure")(&err)
	defer func() { metrics.OracleCalls.WithLabelValues("remote", metrics.Outcome(err)).Inc() }()

	payload, err := json.Marshal(directionsRequest{
		Coordinates: [][]float64{origin.CoordsToList(), destination.CoordsToList()},
	})
	if err != nil {
		return ports.Measurement{}, fmt.Errorf("marshal directions request: %w", err)
	}

	resp, err := o.postDirections(ctx, payload)
	if err != nil {
		return ports.Measurement{}, &OracleError{Origin: origin, Destination: destination, Reason: "directions request failed", Err: err}
	}
	defer resp.Body.Close()

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return ports.Measurement{}, &OracleError{Origin: origin, Destination: destination, Reason: "decode directions response", Err: err}
	}

	if len(dr.Routes) == 0 {
		return ports.Measurement{}, &OracleError{Origin: origin, Destination: destination, Reason: "no route returned"}
	}

	summary := dr.Routes[0].Summary
	if summary.Distance == nil || summary.Duration == nil {
		return ports.Measurement{}, &OracleError{Origin: origin, Destination: destination, Reason: "route summary missing distance or duration"}
	}

	return ports.Measurement{
		DistanceKm:    *summary.Distance / 1000,
		DurationHours: *summary.Duration / 3600,
		Path:          dr.Routes[0].Geometry,
	}, nil
}
