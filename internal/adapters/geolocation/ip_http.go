package geolocation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"vendor-map-service/internal/ports"
)

// lookupStatusError is a non-2xx answer from the geolocation API.
type lookupStatusError struct {
	Code int
	Body string
}

func (e *lookupStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ip lookup: status %d", e.Code)
	}
	return fmt.Sprintf("ip lookup: status %d: %s", e.Code, e.Body)
}

// failure classifies a lookup error as a geolocation kind and reports
// whether another attempt may succeed.
func failure(err error) (kind error, retry bool) {
	var se *lookupStatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ports.ErrPermissionDenied, false
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return ports.ErrTimeout, true
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable:
			return ports.ErrUnavailable, true
		default:
			return ports.ErrUnavailable, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ports.ErrTimeout, true
		}
		return ports.ErrUnavailable, true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ports.ErrTimeout, false
	}
	return ports.ErrUnavailable, false
}

// get performs one lookup request. Non-2xx answers become
// *lookupStatusError with a truncated body.
func (p *IPProvider) get(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("ip lookup: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "vendor-map-service")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &lookupStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// fetch runs get up to maxAttempts times, doubling the pause between
// attempts. Errors come back as *ports.GeolocationError.
func (p *IPProvider) fetch(ctx context.Context) (*http.Response, error) {
	pause := p.backoff

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, ports.AsGeolocationError(err)
		}

		resp, err := p.get(ctx)
		if err == nil {
			return resp, nil
		}

		kind, retry := failure(err)
		if !retry || attempt >= p.maxAttempts {
			return nil, &ports.GeolocationError{Kind: kind, Err: err}
		}

		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ports.AsGeolocationError(ctx.Err())
		case <-timer.C:
		}
		pause *= 2
	}
}
