package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const httpsPort = "8443"

// FetchMetadata describes which host answered and how much it took.
type FetchMetadata struct {
	Provider string        `json:"provider"`
	Duration time.Duration `json:"duration"`
	Attempts int           `json:"attempts"`
}

// FetchResult is the first JSON answer from any host, whatever its HTTP status.
type FetchResult struct {
	Status   int
	Data     json.RawMessage
	Metadata FetchMetadata
}

// Scheme is https for port 8443 and http otherwise.
func Scheme(port string) string {
	if port == httpsPort {
		return "https"
	}
	return "http"
}

// Fetch sends a REST request to the hosts of a port in priority order. Any host that answers with JSON
// wins, and a host that errors or times out loses priority. If every host fails, every host's error is returned.
func (r *Router) Fetch(ctx context.Context, port, method, path string, body interface{}) (*FetchResult, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	start := time.Now()
	attempts := 0
	errs := []error{}

	for _, host := range r.Table(port).Ordered() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		attempts++

		origin := fmt.Sprintf("%s://%s", Scheme(port), net.JoinHostPort(host, port))
		url := origin + "/" + strings.TrimPrefix(path, "/")
		logger := r.logger.With("url", url, "attempt", attempts)

		status, data, err := r.makeRequest(ctx, method, url, payload)
		if err != nil {
			logger.Debug("host request failed", "error", err.Error())
			r.reportFailure(port, host)
			errs = append(errs, fmt.Errorf("%s: %w", origin, err))
			continue
		}

		r.reportSuccess(port, host)
		return &FetchResult{
			Status: status,
			Data:   data,
			Metadata: FetchMetadata{
				Provider: origin,
				Duration: time.Since(start),
				Attempts: attempts,
			},
		}, nil
	}

	if len(errs) == 0 {
		return nil, ErrNoHosts
	}
	return nil, fmt.Errorf("%w: %w", ErrAllHostsFailed, errors.Join(errs...))
}

func (r *Router) makeRequest(ctx context.Context, method, url string, payload []byte) (int, json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.RestTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, err
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(request)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	if !json.Valid(data) {
		return 0, nil, errors.Join(ErrInvalidJSON, fmt.Errorf("status %d", resp.StatusCode))
	}
	return resp.StatusCode, data, nil
}
