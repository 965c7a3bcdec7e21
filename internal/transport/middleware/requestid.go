package middleware

import (
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"

	"github.com/frahmantamala/rental-management/pkg/logger"
)

const TraceIDHeader = "X-Trace-ID"

// RequestID propagates the caller's trace id, or mints one, and puts it on the
// context logger together with chi's request id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.WithTraceID(r.Context(), traceID)
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			ctx = logger.With(ctx, "request_id", reqID)
		}

		w.Header().Set(TraceIDHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
