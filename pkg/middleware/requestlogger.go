package middleware

import (
	"log/slog"
	"net/http"

	"github.com/ConnorDW-SA/marketplace/pkg/logger"
)

// UserIDHeader identifies the caller when an upstream gateway has
// authenticated the request. It is used for log enrichment only.
const UserIDHeader = "X-User-ID"

// RequestLogger stores a request-scoped logger, enriched with correlation_id,
// user_id, trace_id and span_id, in the request context. Mount it after
// RequestLogging and Tracing so those values are present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if userID := r.Header.Get(UserIDHeader); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
