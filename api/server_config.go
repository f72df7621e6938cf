package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig configures the token registry HTTP server.
type HTTPServerConfig struct {
	// ListenAddr is the address of the public API.
	ListenAddr string

	// MetricsAddr is the address of the Prometheus listener. Empty
	// disables the listener.
	MetricsAddr string

	// EnablePprof mounts the pprof handlers under /debug.
	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long /drain keeps serving after readiness is
	// dropped, so load balancers notice before shutdown.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds in-flight request completion on
	// shutdown.
	GracefulShutdownDuration time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}
