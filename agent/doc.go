// Package agent is a client of the Agentforce Agent API.
//
// A Client opens conversations (agent sessions), sends user messages as
// streaming requests and closes conversations. Requests are authorized with a
// bearer token supplied by a TokenSource; a rejected token is refreshed and the
// request replayed once.
package agent
