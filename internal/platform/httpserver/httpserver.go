// Package httpserver builds the HTTP server with sane defaults.
package httpserver

import (
	"context"
	"net/http"
	"time"
)

// New builds an HTTP server for the given handler. Write timeout stays
// above the request timeout middleware so the middleware answers first.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Shutdown drains the server within the grace period.
func Shutdown(srv *http.Server, grace time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return srv.Shutdown(ctx)
}
