// Package stream decodes an Agentforce event stream into upstream events.
//
// Frames are reconstructed independently of how the body is chunked by the
// network: lines may end with LF, CRLF or CR, data lines of a frame are joined
// and a blank line dispatches the frame. Each frame payload is then mapped onto
// the event vocabulary of the bridge.
package stream
