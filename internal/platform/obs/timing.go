package obs

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Time logs the duration of an operation once the returned func is called.
// Usage: defer obs.Time(ctx, logger, "op")(&err)
func Time(ctx context.Context, logger log.Logger, name string) func(errp *error) {
	start := time.Now()

	reqID := middleware.GetReqID(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			level.Warn(logger).Log("req_id", reqID, "op", name, "dur_ms", dur.Milliseconds(), "err", *errp)
			return
		}
		level.Debug(logger).Log("req_id", reqID, "op", name, "dur_ms", dur.Milliseconds())
	}
}
