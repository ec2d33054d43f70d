// Package statussrv exposes a read-only, loopback-only HTTP view of the
// running job set: /healthz for liveness and /status for each job's
// schedule, next run, last run and last result. It never mutates
// anything; all handlers take a snapshot from the scheduling loop and
// render it.
package statussrv

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aetxyz/crore/internal/api"
	"github.com/aetxyz/crore/internal/crond"
	"github.com/aetxyz/crore/internal/tlsutil"
)

// Loop is the subset of *crond.Loop the status server depends on.
type Loop interface {
	Snapshot() []crond.JobSnapshot
}

// Options configures the status server. Only the port is configurable;
// the server always binds the loopback address 127.0.0.1, so the
// endpoint is not reachable off-box.
type Options struct {
	Port      int
	TokenHash string // empty disables the bearer-token check
	CertDir   string // defaults to os.TempDir()/crore/status-certs
}

// Server serves the status endpoint over TLS with a self-signed cert,
// the same pattern the rest of the pack uses for loopback HTTP surfaces.
type Server struct {
	opts      Options
	loop      Loop
	version   string
	startTime time.Time
	server    *http.Server
	certPath  string
	keyPath   string
}

// New builds a Server bound to loop. It does not start listening.
func New(loop Loop, version string, opts Options) *Server {
	certDir := opts.CertDir
	if certDir == "" {
		certDir = filepath.Join(os.TempDir(), "crore", "status-certs")
	}

	s := &Server{
		opts:      opts,
		loop:      loop,
		version:   version,
		startTime: time.Now(),
		certPath:  filepath.Join(certDir, "cert.pem"),
		keyPath:   filepath.Join(certDir, "key.pem"),
	}

	router := chi.NewRouter()
	router.Get("/healthz", s.handleHealthz)
	router.With(s.authenticate).Get("/status", s.handleStatus)

	s.server = &http.Server{
		Addr:      fmt.Sprintf("127.0.0.1:%d", opts.Port),
		Handler:   router,
		TLSConfig: tlsutil.DefaultTLSConfig(),
	}
	return s
}

// ListenAndServe generates a self-signed certificate if one is not
// already present, then serves until the process is shut down. It
// returns nil on a graceful Shutdown.
func (s *Server) ListenAndServe() error {
	if err := tlsutil.EnsureTLSCert(s.certPath, s.keyPath, "crore"); err != nil {
		return fmt.Errorf("ensuring TLS cert: %w", err)
	}
	if err := s.server.ListenAndServeTLS(s.certPath, s.keyPath); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.TokenHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || !VerifyToken(token, s.opts.TokenHash) {
			api.WriteError(w, http.StatusUnauthorized, api.ErrorUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jobView is the wire shape of one job in the /status response.
type jobView struct {
	Schedule   string     `json:"schedule"`
	Command    string     `json:"command"`
	NextRun    time.Time  `json:"next_run"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	LastResult string     `json:"last_result,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := s.loop.Snapshot()
	jobs := make([]jobView, len(snapshot))
	for i, js := range snapshot {
		jobs[i] = jobView{
			Schedule:   js.Schedule,
			Command:    js.Command,
			NextRun:    js.NextRun,
			LastResult: js.LastResult,
		}
		if !js.LastRun.IsZero() {
			lastRun := js.LastRun
			jobs[i].LastRun = &lastRun
		}
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"version":        s.version,
		"uptime_seconds": time.Since(s.startTime).Seconds(),
		"jobs":           jobs,
	})
}
