package server

import (
	"context"
	"encoding/json"

	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/client"
	"github.com/viant/mcp-protocol/schema"
)

// Client implements mcp-protocol/client.Operations over the transport the
// session arrived on, so the tool can issue server initiated requests.
type Client struct {
	Transport
	transport.Sequencer
	implements map[string]bool
}

// Init records the client capabilities advertised on initialize.
func (c *Client) Init(ctx context.Context, capabilities *schema.ClientCapabilities) {
	if capabilities == nil {
		return
	}
	if capabilities.Elicitation != nil {
		c.implements[schema.MethodElicitationCreate] = true
	}
	if capabilities.Roots != nil {
		c.implements[schema.MethodRootsList] = true
	}
	if capabilities.Sampling != nil {
		c.implements[schema.MethodSamplingCreateMessage] = true
	}
}

// Implements reports whether the client advertised support for method.
func (c *Client) Implements(method string) bool {
	return c.implements[method]
}

func (c *Client) nextRequestID() uint64 {
	if c.Sequencer == nil {
		return 0
	}
	id, _ := jsonrpc.AsRequestIntId(c.NextRequestID())
	return uint64(id)
}

func (c *Client) ListRoots(ctx context.Context, request *jsonrpc.TypedRequest[*schema.ListRootsRequest]) (*schema.ListRootsResult, *jsonrpc.Error) {
	if request.Id == 0 {
		request.Id = c.nextRequestID()
	}
	request.Method = schema.MethodRootsList
	return send[schema.ListRootsResult](ctx, c, schema.MethodRootsList, request.Id, request.Request.Params)
}

func (c *Client) CreateMessage(ctx context.Context, request *jsonrpc.TypedRequest[*schema.CreateMessageRequest]) (*schema.CreateMessageResult, *jsonrpc.Error) {
	if request.Id == 0 {
		request.Id = c.nextRequestID()
	}
	request.Method = schema.MethodSamplingCreateMessage
	return send[schema.CreateMessageResult](ctx, c, schema.MethodSamplingCreateMessage, request.Id, &request.Request.Params)
}

// Elicit asks the downstream user to answer a question.
func (c *Client) Elicit(ctx context.Context, request *jsonrpc.TypedRequest[*schema.ElicitRequest]) (*schema.ElicitResult, *jsonrpc.Error) {
	if request.Id == 0 {
		request.Id = c.nextRequestID()
	}
	request.Method = schema.MethodElicitationCreate
	return send[schema.ElicitResult](ctx, c, schema.MethodElicitationCreate, request.Id, request.Request.ElicitRequestParamsInline)
}

func send[R any](ctx context.Context, client *Client, method string, id uint64, params interface{}) (*R, *jsonrpc.Error) {
	request, err := jsonrpc.NewRequest(method, params)
	if err != nil {
		return nil, jsonrpc.NewInvalidRequest(err.Error(), nil)
	}
	request.Id = id
	response, err := client.Send(ctx, request)
	if err != nil {
		return nil, jsonrpc.NewInternalError(err.Error(), request.Params)
	}
	if response == nil {
		return nil, jsonrpc.NewInternalError(method+": empty response", nil)
	}
	if response.Error != nil {
		return nil, response.Error
	}
	var result R
	if err := json.Unmarshal(response.Result, &result); err != nil {
		return nil, jsonrpc.NewInternalError(err.Error(), nil)
	}
	return &result, nil
}

// NewClient creates a client over aTransport.
func NewClient(aTransport Transport) *Client {
	seq, _ := aTransport.(transport.Sequencer)
	return &Client{Transport: aTransport, Sequencer: seq, implements: map[string]bool{}}
}

var _ client.Operations = &Client{}
