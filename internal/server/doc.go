// Package server implements the HTTP surface using Echo framework.
//
// Routes: hub verification and content notifications (/content-webhook),
// health probes, and Prometheus metrics. The webhook pair lives in
// webhook.go, probes in handlers_health.go.
package server
