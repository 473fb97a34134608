package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afmcp/errs"
	"github.com/viant/afmcp/event"
	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
)

func answer(texts ...string) turnFunc {
	return func(ctx context.Context, text string, out chan<- event.Downstream, replies <-chan reply) {
		var final string
		for _, delta := range texts {
			out <- &event.PartialAnswer{Text: delta}
			final += delta
		}
		out <- &event.FinalAnswer{Text: final}
	}
}

func TestHandler_Lifecycle(t *testing.T) {
	handler, _ := newTestHandler(t, newMockBridge(answer("hi")), true)
	assert.True(t, handler.client.Implements(schema.MethodElicitationCreate))

	response := &jsonrpc.Response{}
	handler.Serve(context.Background(), newRequest(t, 2, schema.MethodPing, nil), response)
	assert.Nil(t, response.Error)

	response = &jsonrpc.Response{}
	handler.Serve(context.Background(), newRequest(t, 3, schema.MethodToolsList, map[string]interface{}{}), response)
	require.Nil(t, response.Error)
	listed := &schema.ListToolsResult{}
	require.NoError(t, json.Unmarshal(response.Result, listed))
	require.Len(t, listed.Tools, 1)
	assert.Equal(t, ToolName, listed.Tools[0].Name)
	assert.Equal(t, []string{"user_query"}, listed.Tools[0].InputSchema.Required)

	response = &jsonrpc.Response{}
	handler.Serve(context.Background(), newRequest(t, 4, "resources/list", nil), response)
	assert.NotNil(t, response.Error)

	handler.OnNotification(context.Background(), &jsonrpc.Notification{Method: schema.MethodNotificationInitialized})
	assert.True(t, handler.Initialized)
}

func TestHandler_RegisteredTool(t *testing.T) {
	srv, err := New(newMockBridge(answer("x")))
	require.NoError(t, err)
	handler := srv.newHandler(context.Background(), &mockTransport{})
	require.NoError(t, handler.err)
	assert.True(t, handler.implementer.Implements(schema.MethodToolsList))
	assert.True(t, handler.implementer.Implements(schema.MethodToolsCall))
	assert.False(t, handler.implementer.Implements(schema.MethodResourcesList))

	response := &jsonrpc.Response{}
	handler.Serve(context.Background(), newRequest(t, 2, schema.MethodToolsList, nil), response)
	assert.NotNil(t, response.Error, "tools/list before initialize")

	response = &jsonrpc.Response{}
	handler.Serve(context.Background(), newRequest(t, 3, schema.MethodInitialize, initializeParams(false)), response)
	require.Nil(t, response.Error)
	initialized := &schema.InitializeResult{}
	require.NoError(t, json.Unmarshal(response.Result, initialized))
	assert.NotNil(t, initialized.Capabilities.Tools)
	assert.Nil(t, initialized.Capabilities.Resources)

	response = callTool(t, handler, 4, map[string]interface{}{"name": "other", "arguments": map[string]interface{}{}})
	require.NotNil(t, response.Error)
	assert.Equal(t, jsonrpc.MethodNotFound, response.Error.Code)
}

func TestHandler_InitializeWithoutElicitation(t *testing.T) {
	handler, _ := newTestHandler(t, newMockBridge(answer("hi")), false)
	assert.False(t, handler.client.Implements(schema.MethodElicitationCreate))
}

func TestHandler_CallTool(t *testing.T) {
	var testCases = []struct {
		description string
		turn        turnFunc
		params      map[string]interface{}
		expectText  string
		expectError bool
		progress    int
	}{
		{
			description: "streamed answer",
			turn:        answer("Our return ", "policy is 30 days."),
			params:      callParams("return policy?", map[string]interface{}{"progressToken": "p-1"}),
			expectText:  "Our return policy is 30 days.",
			progress:    2,
		},
		{
			description: "no progress token",
			turn:        answer("a", "b"),
			params:      callParams("q", nil),
			expectText:  "ab",
		},
		{
			description: "multiple messages",
			turn: func(ctx context.Context, text string, out chan<- event.Downstream, replies <-chan reply) {
				out <- &event.FinalAnswer{Text: "first"}
				out <- &event.FinalAnswer{Text: "second"}
			},
			params:     callParams("q", nil),
			expectText: "first\n\nsecond",
		},
		{
			description: "failure",
			turn: func(ctx context.Context, text string, out chan<- event.Downstream, replies <-chan reply) {
				out <- &event.PartialAnswer{Text: "partial"}
				out <- &event.Failure{Reason: "agent unavailable", Err: errs.Upstream("agent", nil)}
			},
			params:      callParams("q", nil),
			expectText:  "agent unavailable",
			expectError: true,
		},
	}
	for _, testCase := range testCases {
		handler, aTransport := newTestHandler(t, newMockBridge(testCase.turn), true)
		result := decodeResult(t, callTool(t, handler, 10, testCase.params))
		assert.Equal(t, testCase.expectText, result.Content[0].Text, testCase.description)
		assert.Equal(t, testCase.expectError, result.IsError, testCase.description)
		assert.Len(t, aTransport.sent("notifications/progress"), testCase.progress, testCase.description)
	}
}

func TestHandler_CallToolProgressPayload(t *testing.T) {
	handler, aTransport := newTestHandler(t, newMockBridge(answer("Hello ", "world")), true)
	decodeResult(t, callTool(t, handler, 5, callParams("hi", map[string]interface{}{"progressToken": 42})))
	notifications := aTransport.sent("notifications/progress")
	require.Len(t, notifications, 2)
	params := &progressParams{}
	require.NoError(t, json.Unmarshal(notifications[1].Params, params))
	assert.EqualValues(t, 42, params.ProgressToken)
	assert.EqualValues(t, 2, params.Progress)
	assert.Equal(t, "world", params.Message)
}

func TestHandler_CallToolInvalid(t *testing.T) {
	var testCases = []struct {
		description string
		bridgeErr   error
		params      interface{}
	}{
		{description: "unknown tool", params: map[string]interface{}{"name": "other", "arguments": map[string]interface{}{}}},
		{description: "empty query", params: callParams("", nil)},
		{description: "busy", bridgeErr: errs.ErrBusy, params: callParams("q", nil)},
	}
	for _, testCase := range testCases {
		bridge := newMockBridge(answer("x"))
		bridge.err = testCase.bridgeErr
		handler, _ := newTestHandler(t, bridge, true)
		response := callTool(t, handler, 11, testCase.params)
		assert.NotNil(t, response.Error, testCase.description)
	}
}

func TestHandler_Elicitation(t *testing.T) {
	var testCases = []struct {
		description   string
		result        *schema.ElicitResult
		expectText    string
		expectDecline bool
	}{
		{
			description: "accepted",
			result:      &schema.ElicitResult{Action: schema.ElicitResultActionAccept, Content: map[string]interface{}{"answer": "ORD-42"}},
			expectText:  "I need more details.\n\nGot ORD-42",
		},
		{
			description: "accepted other field",
			result:      &schema.ElicitResult{Action: schema.ElicitResultActionAccept, Content: map[string]interface{}{"value": "ORD-7"}},
			expectText:  "I need more details.\n\nGot ORD-7",
		},
		{
			description:   "declined",
			result:        &schema.ElicitResult{Action: "decline"},
			expectText:    "I need more details.",
			expectDecline: true,
		},
	}
	for _, testCase := range testCases {
		bridge := newMockBridge(answerOnce("What is your order number?", "ORD-42", "ORD-7"))
		handler, aTransport := newTestHandler(t, bridge, true)
		aTransport.respond = respondWith(t, testCase.result)

		result := decodeResult(t, callTool(t, handler, 12, callParams("cancel my order", nil)))
		assert.Equal(t, testCase.expectText, result.Content[0].Text, testCase.description)

		replies := bridge.replied()
		require.Len(t, replies, 1, testCase.description)
		assert.Equal(t, "el-1", replies[0].id, testCase.description)
		assert.Equal(t, testCase.expectDecline, replies[0].declined, testCase.description)

		require.Len(t, aTransport.requests, 1, testCase.description)
		request := aTransport.requests[0]
		assert.Equal(t, schema.MethodElicitationCreate, request.Method, testCase.description)
		params := &schema.ElicitRequestParams{}
		require.NoError(t, json.Unmarshal(request.Params, params))
		assert.Equal(t, "What is your order number?", params.Message)
		assert.Equal(t, []string{answerField}, params.RequestedSchema.Required)
		property, ok := params.RequestedSchema.Properties[answerField].(map[string]interface{})
		require.True(t, ok)
		assert.EqualValues(t, []interface{}{"ORD-42", "ORD-7"}, property["enum"])
	}
}

func TestHandler_ElicitationUnsupported(t *testing.T) {
	bridge := newMockBridge(answerOnce("Which order?", "A", "B"))
	handler, aTransport := newTestHandler(t, bridge, false)

	result := decodeResult(t, callTool(t, handler, 13, callParams("cancel my order", nil)))
	assert.Equal(t, "I need more details.\n\nWhich order?\nOptions: A, B", result.Content[0].Text)
	assert.False(t, result.IsError)
	assert.Empty(t, aTransport.requests)
	replies := bridge.replied()
	require.Len(t, replies, 1)
	assert.True(t, replies[0].declined)
}

func TestHandler_Cancel(t *testing.T) {
	started := make(chan struct{})
	bridge := newMockBridge(func(ctx context.Context, text string, out chan<- event.Downstream, replies <-chan reply) {
		close(started)
		<-ctx.Done()
		out <- &event.Failure{Reason: "turn aborted", Err: ctx.Err()}
	})
	handler, _ := newTestHandler(t, bridge, true)

	done := make(chan *jsonrpc.Response, 1)
	go func() {
		done <- callTool(t, handler, 7, callParams("slow question", nil))
	}()
	<-started
	params, _ := json.Marshal(map[string]interface{}{"requestId": 7, "reason": "user cancelled"})
	handler.OnNotification(context.Background(), &jsonrpc.Notification{Method: schema.MethodNotificationCancel, Params: params})

	select {
	case response := <-done:
		result := decodeResult(t, response)
		assert.True(t, result.IsError)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled call did not return")
	}
}

func TestHandler_CancelInvalidRequestID(t *testing.T) {
	handler, _ := newTestHandler(t, newMockBridge(answer("x")), true)
	for _, requestID := range []interface{}{nil, true} {
		params, _ := json.Marshal(map[string]interface{}{"requestId": requestID})
		rpcErr := handler.Cancel(context.Background(), &jsonrpc.Notification{Method: schema.MethodNotificationCancel, Params: params})
		require.NotNil(t, rpcErr, "requestId %v", requestID)
		assert.Equal(t, jsonrpc.InvalidParams, rpcErr.Code)
	}
}

func TestHandler_CallToolWithoutAnswer(t *testing.T) {
	silent := func(ctx context.Context, text string, out chan<- event.Downstream, replies <-chan reply) {
		out <- &event.PartialAnswer{Text: "partial"}
	}
	handler, _ := newTestHandler(t, newMockBridge(silent), true)
	result := decodeResult(t, callTool(t, handler, 30, callParams("q", nil)))
	assert.True(t, result.IsError)
	assert.Equal(t, "agent turn ended without an answer", result.Content[0].Text)
}

func TestHandler_ProtocolLogLevel(t *testing.T) {
	progress := func(ctx context.Context, text string, out chan<- event.Downstream, replies <-chan reply) {
		out <- &event.ToolProgress{Info: "Looking up orders"}
		out <- &event.FinalAnswer{Text: "done"}
	}
	handler, aTransport := newTestHandler(t, newMockBridge(progress), true)
	decodeResult(t, callTool(t, handler, 20, callParams("q", nil)))
	assert.Len(t, aTransport.sent(schema.MethodNotificationMessage), 1)

	response := &jsonrpc.Response{}
	handler.Serve(context.Background(), newRequest(t, 21, schema.MethodLoggingSetLevel, map[string]interface{}{"level": "error"}), response)
	require.Nil(t, response.Error)
	decodeResult(t, callTool(t, handler, 22, callParams("q", nil)))
	assert.Len(t, aTransport.sent(schema.MethodNotificationMessage), 1)
}

func TestServer_SessionClosed(t *testing.T) {
	bridge := newMockBridge(answer("x"))
	srv, err := New(bridge)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	handler := srv.newHandler(ctx, &mockTransport{})
	cancel()
	assert.Eventually(t, func() bool {
		closed := bridge.closedSessions()
		return len(closed) == 1 && closed[0] == handler.sessionID
	}, time.Second, 5*time.Millisecond)
}
