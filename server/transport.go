package server

import (
	"context"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
)

// Transport is the downstream session channel: notifications plus
// server-initiated requests.
type Transport interface {
	transport.Notifier
	Send(ctx context.Context, request *jsonrpc.Request) (*jsonrpc.Response, error)
}
