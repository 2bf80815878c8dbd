package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/csvmatch/internal/core"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx for the match
// history. r.RemoteAddr has already been resolved by TrustedRealIP.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ctx = core.ContextWithIPAddress(ctx, ip)
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
