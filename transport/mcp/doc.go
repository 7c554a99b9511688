// Package mcp exposes the demo server's admin operations as MCP tools.
//
// It is a thin client that proxies every tool call to the REST API, so the
// MCP surface stays consistent with what operators can do over HTTP:
// listing connected clients, messaging one client, broadcasting, and
// inspecting the room.
package mcp
