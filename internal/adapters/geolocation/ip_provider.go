package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	"vendor-map-service/internal/domain"
	"vendor-map-service/internal/platform/obs"
	"vendor-map-service/internal/ports"

	"github.com/go-kit/log"
)

// ipResponse accepts both ipapi.co style (latitude/longitude) and
// ip-api.com style (lat/lon) payloads.
type ipResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

// IPProvider approximates the user's position from the server's public
// IP address using an HTTP geolocation API. It is safe for concurrent use.
type IPProvider struct {
	client      *http.Client
	url         string
	logger      log.Logger
	maxAttempts int
	backoff     time.Duration
}

func NewIPProvider(url string, logger log.Logger) (*IPProvider, error) {
	if url == "" {
		return nil, errors.New("ip geolocation url is empty")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &IPProvider{
		client:      &http.Client{Timeout: 5 * time.Second},
		url:         url,
		logger:      logger,
		maxAttempts: 3,
		backoff:     200 * time.Millisecond,
	}, nil
}

func (p *IPProvider) CurrentCoordinate(ctx context.Context) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, p.logger, "geolocation.ip")(&err)

	resp, err := p.fetch(ctx)
	if err != nil {
		return domain.Coordinates{}, err
	}
	defer resp.Body.Close()

	var decoded ipResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, &ports.GeolocationError{
			Kind: ports.ErrUnavailable,
			Err:  fmt.Errorf("decode ip geolocation response: %w", err),
		}
	}

	if decoded.Error {
		return domain.Coordinates{}, &ports.GeolocationError{
			Kind: ports.ErrUnavailable,
			Err:  fmt.Errorf("ip geolocation: %s", decoded.Reason),
		}
	}

	lat, lon := decoded.Latitude, decoded.Longitude
	if lat == nil || lon == nil {
		lat, lon = decoded.Lat, decoded.Lon
	}
	if lat == nil || lon == nil {
		return domain.Coordinates{}, &ports.GeolocationError{
			Kind: ports.ErrUnavailable,
			Err:  errors.New("ip geolocation: response has no coordinates"),
		}
	}

	c := domain.Coordinates{Lat: *lat, Lon: *lon}
	if err := c.Validate(); err != nil {
		return domain.Coordinates{}, &ports.GeolocationError{Kind: ports.ErrUnavailable, Err: err}
	}

	return c, nil
}
