package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

type contextKeyDevice struct{}

// Device parses the User-Agent into a human-readable device name and stores
// it in context. Case records keep it so dispatchers can tell a phoned-in
// report from the mobile app.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), contextKeyDevice{}, ParseUserAgent(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetDevice retrieves the parsed device name from context.
func GetDevice(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyDevice{}).(string)
	return v
}

// ParseUserAgent renders a user agent as "<browser> on <platform>".
func ParseUserAgent(raw string) string {
	if raw == "" {
		return "Unknown Device"
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	platform := ua.OS()
	if platform == "" {
		platform = ua.Platform()
	}
	if platform == "" {
		platform = "Unknown Platform"
	}
	return strings.TrimSpace(browser + " on " + strings.ReplaceAll(platform, "_", " "))
}
