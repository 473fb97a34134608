// Package bridge joins a downstream MCP session to an upstream agent
// conversation.
//
// Each downstream session owns one Session. A Session opens its conversation on
// the first user message and runs one turn at a time: the message is sent, the
// response stream is translated into downstream messages and, when the agent
// asks a question, the turn is suspended until the downstream client answers or
// declines. An answer is sent on the same conversation and the turn resumes.
package bridge
