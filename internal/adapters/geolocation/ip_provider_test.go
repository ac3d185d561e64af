package geolocation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
	"vendor-map-service/internal/ports"
)

func newTestIPProvider(t *testing.T, h http.HandlerFunc) *IPProvider {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	p, err := NewIPProvider(srv.URL, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.backoff = time.Millisecond
	return p
}

func TestIPProviderCurrentCoordinate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"latitude/longitude fields", `{"ip":"1.2.3.4","latitude":28.6,"longitude":77.2}`},
		{"lat/lon fields", `{"status":"success","lat":28.6,"lon":77.2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestIPProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			c, err := p.CurrentCoordinate(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Lat != 28.6 || c.Lon != 77.2 {
				t.Fatalf("coordinate = %v, want (28.6, 77.2)", c)
			}
		})
	}
}

func TestIPProviderRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	p := newTestIPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"latitude":12.97,"longitude":77.59}`))
	})

	c, err := p.CurrentCoordinate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lat != 12.97 {
		t.Fatalf("lat = %v, want 12.97", c.Lat)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("hits = %d, want 3", got)
	}
}

func TestIPProviderErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"forbidden", http.StatusForbidden, `{"error":true,"reason":"denied"}`, ports.ErrPermissionDenied},
		{"exhausted retries", http.StatusBadGateway, "", ports.ErrUnavailable},
		{"api error payload", http.StatusOK, `{"error":true,"reason":"Reserved IP Address"}`, ports.ErrUnavailable},
		{"missing coordinates", http.StatusOK, `{"ip":"1.2.3.4"}`, ports.ErrUnavailable},
		{"malformed json", http.StatusOK, `{`, ports.ErrUnavailable},
		{"out of range", http.StatusOK, `{"latitude":123,"longitude":0}`, ports.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestIPProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := p.CurrentCoordinate(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want kind %v", err, tt.want)
			}
		})
	}
}

func TestIPProviderTimeout(t *testing.T) {
	p := newTestIPProvider(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.CurrentCoordinate(ctx)
	if !errors.Is(err, ports.ErrTimeout) {
		t.Fatalf("err = %v, want kind %v", err, ports.ErrTimeout)
	}
}

func TestIPProviderRetryPolicy(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		want     error
		wantHits int32
	}{
		{"unauthorized is not retried", http.StatusUnauthorized, ports.ErrPermissionDenied, 1},
		{"not found is not retried", http.StatusNotFound, ports.ErrUnavailable, 1},
		{"rate limited is retried", http.StatusTooManyRequests, ports.ErrUnavailable, 3},
		{"gateway timeout is retried", http.StatusGatewayTimeout, ports.ErrTimeout, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			p := newTestIPProvider(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
			})

			_, err := p.CurrentCoordinate(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want kind %v", err, tt.want)
			}
			if got := hits.Load(); got != tt.wantHits {
				t.Fatalf("hits = %d, want %d", got, tt.wantHits)
			}
		})
	}
}
