package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"

	// Twilio sends the same token on every redelivery of one webhook.
	twilioIdempotencyHeader = "I-Twilio-Idempotency-Token"
)

type requestIDKey struct{}

// Tracing tags each request with an id. A caller-supplied X-Request-ID wins,
// then the Twilio idempotency token, then a fresh uuid.
func Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := requestID(r)
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(r *http.Request) string {
	for _, h := range []string{requestIDHeader, twilioIdempotencyHeader} {
		if id := r.Header.Get(h); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
