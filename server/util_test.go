package server

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/viant/afmcp/errs"
	"github.com/viant/afmcp/event"
	"github.com/viant/jsonrpc"
	"github.com/viant/jsonrpc/transport"
	"github.com/viant/mcp-protocol/schema"
)

// mockTransport records notifications and answers server initiated requests.
type mockTransport struct {
	mux           sync.Mutex
	notifications []*jsonrpc.Notification
	requests      []*jsonrpc.Request
	respond       func(r *jsonrpc.Request) (*jsonrpc.Response, error)
}

func (m *mockTransport) Notify(ctx context.Context, n *jsonrpc.Notification) error {
	m.mux.Lock()
	defer m.mux.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockTransport) Send(ctx context.Context, r *jsonrpc.Request) (*jsonrpc.Response, error) {
	m.mux.Lock()
	m.requests = append(m.requests, r)
	respond := m.respond
	m.mux.Unlock()
	if respond == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return respond(r)
}

func (m *mockTransport) sent(method string) []*jsonrpc.Notification {
	m.mux.Lock()
	defer m.mux.Unlock()
	var ret []*jsonrpc.Notification
	for _, n := range m.notifications {
		if n.Method == method {
			ret = append(ret, n)
		}
	}
	return ret
}

var _ transport.Transport = (*mockTransport)(nil)

func respondWith(t *testing.T, result interface{}) func(r *jsonrpc.Request) (*jsonrpc.Response, error) {
	return func(r *jsonrpc.Request) (*jsonrpc.Response, error) {
		data, err := json.Marshal(result)
		require.NoError(t, err)
		return &jsonrpc.Response{Jsonrpc: jsonrpc.Version, Result: data}, nil
	}
}

type reply struct {
	id       string
	text     string
	declined bool
}

// turnFunc scripts one bridge turn; replies carries elicitation answers.
type turnFunc func(ctx context.Context, text string, out chan<- event.Downstream, replies <-chan reply)

type mockBridge struct {
	mux     sync.Mutex
	turn    turnFunc
	err     error
	replies chan reply
	texts   []string
	answers []reply
	closed  []string
}

func newMockBridge(turn turnFunc) *mockBridge {
	return &mockBridge{turn: turn, replies: make(chan reply, 4)}
}

func (b *mockBridge) HandleUserMessage(ctx context.Context, sessionID, text string) (<-chan event.Downstream, error) {
	b.mux.Lock()
	defer b.mux.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	b.texts = append(b.texts, text)
	out := make(chan event.Downstream, 8)
	go func() {
		defer close(out)
		b.turn(ctx, text, out, b.replies)
	}()
	return out, nil
}

func (b *mockBridge) HandleElicitationAnswer(ctx context.Context, sessionID, elicitationID, text string) error {
	return b.reply(reply{id: elicitationID, text: text})
}

func (b *mockBridge) HandleElicitationDecline(ctx context.Context, sessionID, elicitationID string) error {
	return b.reply(reply{id: elicitationID, declined: true})
}

func (b *mockBridge) reply(r reply) error {
	b.mux.Lock()
	b.answers = append(b.answers, r)
	b.mux.Unlock()
	select {
	case b.replies <- r:
		return nil
	default:
		return errs.ErrNoPendingElicitation
	}
}

func (b *mockBridge) SessionClosed(sessionID string) {
	b.mux.Lock()
	defer b.mux.Unlock()
	b.closed = append(b.closed, sessionID)
}

func (b *mockBridge) replied() []reply {
	b.mux.Lock()
	defer b.mux.Unlock()
	return append([]reply(nil), b.answers...)
}

func (b *mockBridge) closedSessions() []string {
	b.mux.Lock()
	defer b.mux.Unlock()
	return append([]string(nil), b.closed...)
}

// answerOnce scripts a turn that asks question and echoes the reply.
func answerOnce(question string, choices ...string) turnFunc {
	return func(ctx context.Context, text string, out chan<- event.Downstream, replies <-chan reply) {
		out <- &event.FinalAnswer{Text: "I need more details."}
		out <- &event.ElicitationRequest{ID: "el-1", Question: question, Choices: choices}
		select {
		case r := <-replies:
			if r.declined {
				return
			}
			out <- &event.FinalAnswer{Text: "Got " + r.text}
		case <-ctx.Done():
			out <- &event.Failure{Reason: "aborted", Err: ctx.Err()}
		}
	}
}

func newRequest(t *testing.T, id int, method string, params interface{}) *jsonrpc.Request {
	request := &jsonrpc.Request{Jsonrpc: jsonrpc.Version, Method: method, Id: id}
	if params != nil {
		data, err := json.Marshal(params)
		require.NoError(t, err)
		request.Params = data
	}
	return request
}

func callParams(query string, meta map[string]interface{}) map[string]interface{} {
	params := map[string]interface{}{
		"name":      ToolName,
		"arguments": map[string]interface{}{"user_query": query},
	}
	if meta != nil {
		params["_meta"] = meta
	}
	return params
}

func initializeParams(elicitation bool) map[string]interface{} {
	capabilities := map[string]interface{}{}
	if elicitation {
		capabilities["elicitation"] = map[string]interface{}{}
	}
	return map[string]interface{}{
		"protocolVersion": "2025-06-18",
		"capabilities":    capabilities,
		"clientInfo":      map[string]interface{}{"name": "test", "version": "1.0"},
	}
}

// newTestHandler returns an initialized handler over a fresh mock transport.
func newTestHandler(t *testing.T, bridge Bridge, elicitation bool) (*Handler, *mockTransport) {
	srv, err := New(bridge)
	require.NoError(t, err)
	aTransport := &mockTransport{}
	handler := srv.newHandler(context.Background(), aTransport)
	response := &jsonrpc.Response{}
	handler.Serve(context.Background(), newRequest(t, 1, schema.MethodInitialize, initializeParams(elicitation)), response)
	require.Nil(t, response.Error)
	return handler, aTransport
}

func callTool(t *testing.T, handler *Handler, id int, params interface{}) *jsonrpc.Response {
	response := &jsonrpc.Response{}
	handler.Serve(context.Background(), newRequest(t, id, schema.MethodToolsCall, params), response)
	return response
}

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func decodeResult(t *testing.T, response *jsonrpc.Response) *toolResult {
	require.Nil(t, response.Error)
	result := &toolResult{}
	require.NoError(t, json.Unmarshal(response.Result, result))
	require.Len(t, result.Content, 1)
	return result
}
