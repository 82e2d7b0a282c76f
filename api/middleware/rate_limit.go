package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/leasewise/leasewise-backend/api/responses"
	pkgerrors "github.com/leasewise/leasewise-backend/pkg/errors"
	"github.com/leasewise/leasewise-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(action, subject string) string
}

// RateLimitPolicy caps how often one user may hit an action within a window.
type RateLimitPolicy struct {
	Action string
	Window time.Duration
	Limit  int
}

func (p RateLimitPolicy) enabled() bool {
	return p.Action != "" && p.Window > 0 && p.Limit > 0
}

// OwnerRateLimit counts requests per authenticated user in Redis. It is a
// pass-through when the policy is disabled or no store is configured.
func OwnerRateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			user := UserIDFromContext(ctx)
			if user == "" {
				next.ServeHTTP(w, r)
				return
			}
			count, err := store.IncrWithTTL(ctx, store.RateLimitKey(policy.Action, user), policy.Window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if count > int64(policy.Limit) {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"policy":         policy.Action,
						"attempts":       count,
						"limit":          policy.Limit,
						"window_seconds": int(policy.Window.Seconds()),
					}), "rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
