// Package api implements the HTTP REST API and WebSocket server for the
// Gray Logic AV bridge.
//
// This package provides:
//   - REST endpoints for command dispatch, status and change group inspection
//   - WebSocket hub for real-time change event broadcasts
//   - Optional bearer-token authentication (shared-secret HS256)
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server fronts one adapter instance. Commands POSTed to
// /api/v1/command flow through the adapter's dispatch pipeline to the
// processor core; change events flow back from the change group engine
// through the hub to subscribed WebSocket clients.
//
// # Security
//
// Authentication is optional and aimed at machine-to-machine callers:
// requests present HS256 tokens signed with the configured shared secret.
// There is no user store and no login endpoint. WebSocket upgrades pass the
// token as a query parameter because browsers cannot set headers on
// WebSocket connections.
//
// # Graceful Degradation
//
// The server keeps serving while the core connection is down: commands
// surface transient errors, /health stays green, and the status endpoint
// reports the disconnected state.
package api
