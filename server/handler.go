package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/viant/afmcp/internal/collection"
	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
	protoserver "github.com/viant/mcp-protocol/server"
)

// Handler serves one downstream transport session.
type Handler struct {
	*Logger
	server           *Server
	sessionID        string
	transport        Transport
	client           *Client
	implementer      protoserver.Handler
	err              error
	logger           *slog.Logger
	clientInitialize *schema.InitializeRequestParams
	loggingLevel     schema.LoggingLevel
	active           *collection.SyncMap[int, context.CancelFunc]
	once             sync.Once
	Initialized      bool
}

// Serve handles incoming JSON-RPC requests
func (h *Handler) Serve(parent context.Context, request *jsonrpc.Request, response *jsonrpc.Response) {
	if jsonrpc.Version != request.Jsonrpc {
		response.Error = jsonrpc.NewInvalidRequest("invalid JSON-RPC version", nil)
		return
	}
	if h.err != nil {
		response.Error = jsonrpc.NewInternalError(h.err.Error(), nil)
		return
	}
	switch request.Method {
	case schema.MethodInitialize, schema.MethodPing, schema.MethodLoggingSetLevel:
	default:
		if !h.implementer.Implements(request.Method) {
			response.Error = jsonrpc.NewMethodNotFound(fmt.Sprintf("method: %v not found", request.Method), request.Params)
			return
		}
	}
	id, _ := jsonrpc.AsRequestIntId(request.Id)
	ctx, cancel := context.WithCancel(parent)
	if token := extractProgressToken(request); token != nil {
		ctx = context.WithValue(ctx, progressTokenKey, token)
	}
	h.activeContexts().Put(id, cancel)
	defer h.cancelOperation(id)

	switch request.Method {
	case schema.MethodInitialize:
		result, err := h.Initialize(ctx, request)
		h.setResponse(response, result, err)
	case schema.MethodPing:
		result, err := h.Ping(ctx, request)
		h.setResponse(response, result, err)
	case schema.MethodToolsList:
		result, err := h.ListTools(ctx, request)
		h.setResponse(response, result, err)
	case schema.MethodToolsCall:
		result, err := h.CallTool(ctx, request)
		h.setResponse(response, result, err)
	case schema.MethodLoggingSetLevel:
		result, err := h.SetLevel(ctx, request)
		h.setResponse(response, result, err)
	default:
		response.Error = jsonrpc.NewMethodNotFound(fmt.Sprintf("method: %v not found", request.Method), request.Params)
	}
}

func (h *Handler) setResponse(response *jsonrpc.Response, result interface{}, rpcError *jsonrpc.Error) {
	if rpcError != nil {
		response.Error = rpcError
		return
	}
	var err error
	response.Result, err = json.Marshal(result)
	if err != nil {
		response.Error = jsonrpc.NewInternalError(err.Error(), []byte{})
	}
}

// OnNotification handles incoming JSON-RPC notifications
func (h *Handler) OnNotification(ctx context.Context, notification *jsonrpc.Notification) {
	switch notification.Method {
	case schema.MethodNotificationCancel:
		if err := h.Cancel(ctx, notification); err != nil {
			h.logger.Debug("ignoring cancellation", "error", err)
		}
	case schema.MethodNotificationInitialized:
		h.Initialized = true
		return
	}
	if h.implementer != nil {
		h.implementer.OnNotification(ctx, notification)
	}
}

func (h *Handler) activeContexts() *collection.SyncMap[int, context.CancelFunc] {
	h.once.Do(func() {
		h.active = collection.NewSyncMap[int, context.CancelFunc]()
	})
	return h.active
}

func (h *Handler) cancelOperation(id int) {
	if cancel, ok := h.activeContexts().Delete(id); ok {
		cancel()
	}
}
