/*
Package httpserver runs the public token registry API.

The server mounts any number of route groups (normally a
tokenhandler.Handler) behind request logging and Prometheus middleware,
and adds the operational endpoints:

  - GET /livez   - liveness check
  - GET /readyz  - readiness check, 503 while draining
  - GET /drain   - mark the server not ready ahead of shutdown
  - GET /undrain - mark the server ready again

Metrics are exported on a separate listener configured by
api.HTTPServerConfig.MetricsAddr.

	cfg := &api.HTTPServerConfig{
	    ListenAddr:               ":8080",
	    MetricsAddr:              ":8090",
	    Log:                      log,
	    DrainDuration:            15 * time.Second,
	    GracefulShutdownDuration: 30 * time.Second,
	    ReadTimeout:              60 * time.Second,
	    WriteTimeout:             30 * time.Second,
	}
	srv, err := httpserver.New(cfg, metricsSrv, tokenhandler.NewHandler(snapshot, log))
	if err != nil {
	    return err
	}
	srv.RunInBackground()
	defer srv.Shutdown()
*/
package httpserver
