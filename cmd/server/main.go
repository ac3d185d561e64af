package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"vendor-map-service/internal/adapters/geolocation"
	"vendor-map-service/internal/adapters/mapview"
	"vendor-map-service/internal/adapters/navigation"
	"vendor-map-service/internal/api"
	"vendor-map-service/internal/config"
	"vendor-map-service/internal/platform/obs"
	"vendor-map-service/internal/ports"
	"vendor-map-service/internal/services"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// main is the application composition root.
// It wires the in-memory map view, navigator and geolocation provider
// behind ports and starts the HTTP server.
func main() {
	envErr := godotenv.Load()

	cfg, cfgErr := config.FromEnv()
	logger := obs.NewLogger(os.Stderr, cfg.LogLevel)

	if envErr != nil {
		level.Info(logger).Log("msg", "No .env file found (using environment variables)")
	}
	if cfgErr != nil {
		level.Error(logger).Log("during", "config", "err", cfgErr)
		os.Exit(1)
	}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		level.Error(logger).Log("during", "geolocation", "err", err)
		os.Exit(1)
	}

	view := mapview.NewMemoryView(logger)
	navigator := navigation.NewLinkNavigator(cfg.DetailsPage, logger)
	session := services.NewMapSession(view, navigator, services.NewGeoSampler(nil), logger)

	router := api.NewRouter(session, view, provider, api.Options{
		Categories:     cfg.Categories,
		DefaultRangeKm: cfg.DefaultRangeKm,
		LocateTimeout:  cfg.GeoTimeout,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		level.Info(logger).Log("transport", "HTTP", "addr", srv.Addr, "geo_mode", cfg.GeoMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		level.Error(logger).Log("transport", "HTTP", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("transport", "HTTP", "status", "stopped")
}

func newProvider(cfg config.Config, logger log.Logger) (ports.GeolocationProvider, error) {
	if cfg.GeoMode != config.GeoModeIP {
		return geolocation.NewStaticProvider(cfg.StaticOrigin), nil
	}

	ip, err := geolocation.NewIPProvider(cfg.IPGeoURL, logger)
	if err != nil {
		return nil, err
	}
	if cfg.GeoCacheTTL == 0 {
		return ip, nil
	}
	return geolocation.NewCachedProvider(ip, cfg.GeoCacheTTL, logger)
}
