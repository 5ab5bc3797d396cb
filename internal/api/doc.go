// Package api implements the local control API and WebSocket event stream
// for the automation runtime.
//
// This package provides:
//   - REST endpoints to inspect automations, trigger manual runs, toggle
//     enabled state and read run history
//   - WebSocket hub relaying run lifecycle events (automation.start,
//     automation.complete, automation.error)
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Graceful Degradation
//
// MQTT and the run history store are optional. Without them the metrics
// endpoint reports them as absent and the runs endpoint returns 404.
package api
