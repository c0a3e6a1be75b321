package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/obs"
	"strings"
	"time"
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// jsonClient is the shared transport of the HTTP integration adapters.
type jsonClient struct {
	session *http.Client
	baseURL string
}

func newJSONClient(baseURL string, session *http.Client) jsonClient {
	if session == nil {
		session = &http.Client{Timeout: 5 * time.Second}
	}
	return jsonClient{session: session, baseURL: strings.TrimRight(baseURL, "/")}
}

// do sends in (when non-nil) as JSON and decodes the response into out
// (when non-nil). Failures wrap domain.ErrIntegration.
func (c jsonClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode %s %s: %v", domain.ErrIntegration, method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", domain.ErrIntegration, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := obs.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.session.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrIntegration, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		serr := &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s %s: %v", domain.ErrNotFound, method, path, serr)
		}
		return fmt.Errorf("%w: %s %s: %v", domain.ErrIntegration, method, path, serr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", domain.ErrIntegration, method, path, err)
	}
	return nil
}
