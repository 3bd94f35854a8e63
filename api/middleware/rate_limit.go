package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/serviplace/serviplace-backend/api/responses"
	"github.com/serviplace/serviplace-backend/pkg/config"
	pkgerrors "github.com/serviplace/serviplace-backend/pkg/errors"
	"github.com/serviplace/serviplace-backend/pkg/logger"
)

type fixedWindowStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit enforces the global fixed-window request budget per caller. The
// scope is the authenticated user when one is present, the client IP
// otherwise. The limiter fails open when the store is unreachable.
func RateLimit(cfg config.RateLimitConfig, store fixedWindowStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || cfg.GlobalLimit <= 0 || cfg.GlobalWindow <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			scope := "user:" + UserIDFromContext(r.Context())
			if scope == "user:" {
				scope = "ip:" + clientIP(r)
			}

			allowed, _, err := store.FixedWindowAllow(r.Context(), scope, cfg.GlobalLimit, cfg.GlobalWindow)
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "scope", scope), "rate limit store unavailable, failing open")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
