// Package gate admits device connections onto the duplex audio path.
//
// The gate sits in front of the websocket upgrade endpoint: it extracts the
// device credential from the request, validates it against the external
// store within a bounded timeout, and only then completes the protocol
// upgrade and hands the connection to the session layer. Every failure mode
// converges on a 401 so the wire response never leaks why an upgrade was
// refused.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/soundbarrier/auricle/internal/observe"
	"github.com/soundbarrier/auricle/pkg/store"
)

// bearerPrefix is the scheme prefix stripped from the Authorization header.
const bearerPrefix = "Bearer "

// UpgradeContext carries everything the session layer needs about an
// admitted connection. It is built once per successful upgrade and consumed
// exactly once by the Admitter; rejected upgrades never produce one.
type UpgradeContext struct {
	// SessionID uniquely identifies the admitted session.
	SessionID uuid.UUID

	// Credential is the raw token the device presented.
	Credential string

	// User is the authenticated identity behind the credential.
	User *store.User

	// Client is the store client scoped to the credential. All of the
	// session's data access goes through it.
	Client *store.Client

	// RequestedAt is when the upgrade request arrived.
	RequestedAt time.Time
}

// Admitter owns all post-admission session logic. Admit is called on the
// upgrade handler's goroutine and should block until the session ends; the
// gate performs no further work on the connection after handing it over.
type Admitter interface {
	Admit(ctx context.Context, conn *websocket.Conn, uctx UpgradeContext)
}

// ClientFactory constructs credential-scoped store clients. Implemented by
// [store.Factory].
type ClientFactory interface {
	New(credential string) (*store.Client, error)
}

// Gate is the connection-admission handler for the websocket upgrade
// endpoint. Create one per server; it is safe for concurrent use.
type Gate struct {
	clients     ClientFactory
	admitter    Admitter
	authTimeout time.Duration
	metrics     *observe.Metrics
}

// New creates a Gate. authTimeout bounds the credential validation call; a
// validation that overruns it is rejected like any other authentication
// failure.
func New(clients ClientFactory, admitter Admitter, authTimeout time.Duration, m *observe.Metrics) *Gate {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Gate{
		clients:     clients,
		admitter:    admitter,
		authTimeout: authTimeout,
		metrics:     m,
	}
}

// ServeHTTP handles one upgrade attempt. The credential is taken from the
// token query parameter first, then from a bearer Authorization header.
func (g *Gate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestedAt := time.Now().UTC()

	credential := extractCredential(r)
	if credential == "" {
		// Not an error: unauthenticated probes are routine.
		slog.Debug("gate: upgrade without credential", "remote", r.RemoteAddr)
		g.reject(w, r, "credential_missing", true)
		return
	}

	client, err := g.clients.New(credential)
	if err != nil {
		slog.Error("gate: scoped client construction failed", "remote", r.RemoteAddr, "err", err)
		g.reject(w, r, "error", false)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), g.authTimeout)
	defer cancel()

	start := time.Now()
	user, err := client.Authenticate(ctx)
	g.metrics.AuthDuration.Record(r.Context(), time.Since(start).Seconds())
	if err != nil {
		// A validation that overran the timeout counts as an
		// authentication failure; the wire response is identical either
		// way.
		if errors.Is(err, store.ErrAuthentication) || errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("gate: authentication failed", "remote", r.RemoteAddr, "err", err)
			g.reject(w, r, "authentication_failed", false)
		} else {
			slog.Error("gate: upgrade failed", "remote", r.RemoteAddr, "err", err)
			g.reject(w, r, "error", false)
		}
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		// Accept has already written its own error response.
		slog.Error("gate: websocket accept failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	uctx := UpgradeContext{
		SessionID:   uuid.New(),
		Credential:  credential,
		User:        user,
		Client:      client,
		RequestedAt: requestedAt,
	}

	g.metrics.Admissions.Add(r.Context(), 1)
	slog.Info("gate: connection admitted",
		"session_id", uctx.SessionID,
		"user_id", user.ID,
		"remote", r.RemoteAddr,
	)

	// Blocks until the session ends; the connection belongs to the
	// admitter from here on.
	g.admitter.Admit(r.Context(), conn, uctx)
}

// extractCredential pulls the credential from the token query parameter,
// falling back to a bearer Authorization header.
func extractCredential(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, bearerPrefix) {
		return strings.TrimPrefix(auth, bearerPrefix)
	}
	return ""
}

// reject answers an upgrade attempt with a 401 and records the rejection.
// challenge controls whether a WWW-Authenticate header accompanies the
// response; it is sent only when no credential was presented at all.
func (g *Gate) reject(w http.ResponseWriter, r *http.Request, reason string, challenge bool) {
	g.metrics.Rejections.Add(r.Context(), 1,
		metric.WithAttributes(attribute.String("reason", reason)))
	if challenge {
		w.Header().Set("WWW-Authenticate", `Bearer realm="auricle"`)
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
