// Package server owns the gateway's network listeners and their coordinated
// shutdown: the device-facing websocket listener and the operational
// listener (health, readiness, metrics) are created at process start and
// torn down exactly once, under a bounded grace period, when a termination
// signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Listener is one network listener participating in coordinated shutdown.
type Listener interface {
	// Name identifies the listener in logs.
	Name() string

	// Serve blocks accepting connections until the listener is closed.
	Serve() error

	// Close drains and closes the listener, blocking until done or until
	// ctx expires.
	Close(ctx context.Context) error
}

// HTTPListener wraps an [http.Server] as a [Listener], optionally with TLS.
type HTTPListener struct {
	name     string
	srv      *http.Server
	certFile string
	keyFile  string
}

// NewHTTPListener creates a plain-HTTP listener on addr serving handler.
func NewHTTPListener(name, addr string, handler http.Handler) *HTTPListener {
	return &HTTPListener{
		name: name,
		srv:  &http.Server{Addr: addr, Handler: handler},
	}
}

// NewHTTPSListener creates a TLS listener on addr serving handler with the
// given certificate pair.
func NewHTTPSListener(name, addr string, handler http.Handler, certFile, keyFile string) *HTTPListener {
	l := NewHTTPListener(name, addr, handler)
	l.certFile = certFile
	l.keyFile = keyFile
	return l
}

// Name identifies the listener in logs.
func (l *HTTPListener) Name() string { return l.name }

// Serve blocks until the server is shut down. A graceful shutdown is
// reported as nil, not as an error.
func (l *HTTPListener) Serve() error {
	slog.Info("listener started", "name", l.name, "addr", l.srv.Addr, "tls", l.certFile != "")
	var err error
	if l.certFile != "" {
		err = l.srv.ListenAndServeTLS(l.certFile, l.keyFile)
	} else {
		err = l.srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("server: %s listener: %w", l.name, err)
}

// Close gracefully shuts the server down, waiting for in-flight requests
// until ctx expires.
func (l *HTTPListener) Close(ctx context.Context) error {
	return l.srv.Shutdown(ctx)
}
