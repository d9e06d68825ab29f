package middleware

import (
	"net"
	"net/http"

	"github.com/MrEthical07/authgate"
)

// ClientInfo stores the remote address and User-Agent in the request
// context for audit events. The IP comes from RemoteAddr only; put a
// trusted proxy in front if X-Forwarded-For must be honoured.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		ctx := authgate.WithClientIP(r.Context(), ip)
		if ua := r.UserAgent(); ua != "" {
			ctx = authgate.WithUserAgent(ctx, ua)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
