package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-supplier/internal/common"
)

// Middleware enforces a request rate per client IP. Limiter errors
// fail open so a Redis outage does not take authentication down with
// it.
type Middleware struct {
	Limiter *limiter.Limiter
	Log     zerolog.Logger
}

func New(l *limiter.Limiter, log zerolog.Logger) Middleware {
	return Middleware{Limiter: l, Log: log}
}

func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx, err := m.Limiter.Get(r.Context(), common.ClientIP(r))
		if err != nil {
			m.Log.Warn().Err(err).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))
		if ctx.Reached {
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, slow down", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
