// Package server exposes the bridge as an MCP server.
//
// Each downstream transport session gets its own Handler. The handler answers
// the MCP lifecycle methods and serves the ask tool, which relays the user
// query to the agent and streams the reply back as progress notifications.
// Questions from the agent are forwarded to the client as elicitation requests
// over the same transport.
//
// Both the streamable HTTP and the SSE transports of viant/jsonrpc are mounted
// by HTTP, next to the metrics and health endpoints.
package server
