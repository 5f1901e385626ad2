// Package myhttp wraps http.ServeMux with the middleware every comparison
// route shares: span-scoped logging, panic recovery, profiling tags and a
// request-duration histogram.
package myhttp

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
)

// newServerMux builds the router the comparison server mounts its routes on.
// Handlers registered through HandleWithMiddleware get the full middleware
// chain; plain Handle/HandleFunc registrations (health, metrics, pprof) skip
// it.
func newServerMux(logger *slog.Logger, httpRequestsDurationMicroSeconds metric.Int64Histogram) *myRouter {
	return &myRouter{
		ServeMux:                         http.NewServeMux(),
		logger:                           logger,
		httpRequestsDurationMicroSeconds: httpRequestsDurationMicroSeconds,
	}
}

var NewServerMux = newServerMux
