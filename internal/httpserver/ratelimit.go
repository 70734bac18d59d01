package httpserver

import (
	"fmt"
	"net/http"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const rateLimitedMessage = "Too many attempts. Please try again later."

// newRateLimit returns a wrapper limiting requests per client IP. An empty
// rate returns a pass-through wrapper.
func newRateLimit(formatted string, trustProxy bool) (func(http.Handler) http.Handler, error) {
	if formatted == "" {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("parse rate limit %q: %w", formatted, err)
	}
	mw := stdlib.NewMiddleware(
		limiter.New(memory.NewStore(), rate, limiter.WithTrustForwardHeader(trustProxy)),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, rateLimitedMessage, http.StatusTooManyRequests)
		}),
	)
	return mw.Handler, nil
}
