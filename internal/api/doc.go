// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/crawl to run every enabled source and return the summary.
//   - GET /v1/crawl/last for the most recent summary.
//   - GET /v1/sources for the registered source names.
package api
