// Package api provides the HTTP surface of the demo server.
//
// It mounts:
//   - /ws                             WebSocket upgrade endpoint
//   - GET  /api/clients               list registered clients
//   - POST /api/clients/{id}/message  message one client
//   - POST /api/broadcast             broadcast a text message
//   - GET  /api/room                  room members and transcript
//   - /                               static demo page
//
// The REST endpoints exist for operators and for the MCP transport, which
// proxies them. Sending to a disconnected client maps to 404, mirroring the
// bridge's ErrTargetNotFound contract.
package api
