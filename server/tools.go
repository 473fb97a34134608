package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viant/afmcp/errs"
	"github.com/viant/afmcp/event"
	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
)

// answerField is the elicitation form field carrying the user's reply.
const answerField = "answer"

// ListTools handles the tools/list method
func (h *Handler) ListTools(ctx context.Context, request *jsonrpc.Request) (*schema.ListToolsResult, *jsonrpc.Error) {
	listRequest := &schema.ListToolsRequest{Method: request.Method}
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &listRequest.Params); err != nil {
			return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse: %v", err), request.Params)
		}
	}
	id, _ := jsonrpc.AsRequestIntId(request.Id)
	return h.implementer.ListTools(ctx, &jsonrpc.TypedRequest[*schema.ListToolsRequest]{Id: uint64(id), Method: request.Method, Request: listRequest})
}

// CallTool handles the tools/call method
func (h *Handler) CallTool(ctx context.Context, request *jsonrpc.Request) (*schema.CallToolResult, *jsonrpc.Error) {
	callToolRequest := &schema.CallToolRequest{Method: request.Method}
	if err := json.Unmarshal(request.Params, &callToolRequest.Params); err != nil {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("failed to parse: %v", err), request.Params)
	}
	id, _ := jsonrpc.AsRequestIntId(request.Id)
	return h.implementer.CallTool(ctx, &jsonrpc.TypedRequest[*schema.CallToolRequest]{Id: uint64(id), Method: request.Method, Request: callToolRequest})
}

// ask runs one agent turn for the ask tool.
func (h *Handler) ask(ctx context.Context, request *schema.CallToolRequest) (*schema.CallToolResult, *jsonrpc.Error) {
	input := &AskInput{}
	if err := input.load(request.Params.Arguments); err != nil {
		return nil, jsonrpc.NewInvalidParamsError(fmt.Sprintf("invalid %v arguments: %v", ToolName, err), nil)
	}
	messages, err := h.server.bridge.HandleUserMessage(ctx, h.sessionID, input.UserQuery)
	if err != nil {
		return nil, rpcError(err)
	}
	return h.consume(ctx, messages), nil
}

// consume folds the downstream messages of one turn into a tool result.
func (h *Handler) consume(ctx context.Context, messages <-chan event.Downstream) *schema.CallToolResult {
	var answers []string
	var question *event.ElicitationRequest
	progress := 0.0
	token := progressToken(ctx)
	for message := range messages {
		switch actual := message.(type) {
		case *event.PartialAnswer:
			progress++
			if err := h.Progress(ctx, token, progress, actual.Text); err != nil {
				h.logger.Debug("failed to send progress", "error", err)
			}
		case *event.ToolProgress:
			if err := h.Logger.Info(ctx, actual.Info); err != nil {
				h.logger.Debug("failed to send log message", "error", err)
			}
		case *event.FinalAnswer:
			answers = append(answers, actual.Text)
		case *event.ElicitationRequest:
			question = actual
			if !h.client.Implements(schema.MethodElicitationCreate) {
				h.decline(ctx, actual.ID)
				for range messages {
				}
				return textResult(strings.Join(append(answers, questionText(actual)), "\n\n"))
			}
			h.elicit(ctx, actual)
		case *event.Failure:
			return errorResult(actual.Reason)
		}
	}
	if len(answers) == 0 {
		if question != nil {
			return textResult(questionText(question))
		}
		return errorResult("agent turn ended without an answer")
	}
	return textResult(strings.Join(answers, "\n\n"))
}

// elicit relays the agent question to the client and resumes the turn with
// its reply; anything but an accepted non empty answer declines.
func (h *Handler) elicit(ctx context.Context, request *event.ElicitationRequest) {
	elicitCtx := ctx
	if !request.ExpiresAt.IsZero() {
		var cancel context.CancelFunc
		elicitCtx, cancel = context.WithDeadline(ctx, request.ExpiresAt)
		defer cancel()
	}
	result, rpcErr := h.client.Elicit(elicitCtx, &jsonrpc.TypedRequest[*schema.ElicitRequest]{
		Request: &schema.ElicitRequest{Jsonrpc: jsonrpc.Version, Method: schema.MethodElicitationCreate, ElicitRequestParamsInline: elicitParams(request)},
	})
	if rpcErr != nil {
		h.logger.Warn("elicitation failed", "elicitation", request.ID, "code", rpcErr.Code, "error", rpcErr.Message)
		h.decline(ctx, request.ID)
		return
	}
	text := ""
	if result.Action == schema.ElicitResultActionAccept {
		text = answerText(result.Content)
	}
	if text == "" {
		h.logger.Info("elicitation declined by client", "elicitation", request.ID, "action", result.Action)
		h.decline(ctx, request.ID)
		return
	}
	if err := h.server.bridge.HandleElicitationAnswer(ctx, h.sessionID, request.ID, text); err != nil {
		h.logger.Warn("elicitation answer rejected", "elicitation", request.ID, "error", err)
	}
}

func (h *Handler) decline(ctx context.Context, elicitationID string) {
	if err := h.server.bridge.HandleElicitationDecline(ctx, h.sessionID, elicitationID); err != nil {
		h.logger.Warn("elicitation decline rejected", "elicitation", elicitationID, "error", err)
	}
}

func elicitParams(request *event.ElicitationRequest) *schema.ElicitRequestParams {
	property := map[string]interface{}{"type": "string", "description": request.Question}
	if len(request.Choices) > 0 {
		property["enum"] = request.Choices
	}
	return &schema.ElicitRequestParams{
		ElicitationId: request.ID,
		Message:       request.Question,
		RequestedSchema: schema.ElicitRequestParamsRequestedSchema{
			Type:       "object",
			Properties: map[string]interface{}{answerField: property},
			Required:   []string{answerField},
		},
	}
}

// answerText returns the answer field, or else the first string value.
func answerText(content map[string]interface{}) string {
	if text, ok := content[answerField].(string); ok && text != "" {
		return text
	}
	for _, value := range content {
		if text, ok := value.(string); ok && text != "" {
			return text
		}
	}
	return ""
}

func questionText(request *event.ElicitationRequest) string {
	if len(request.Choices) == 0 {
		return request.Question
	}
	return request.Question + "\nOptions: " + strings.Join(request.Choices, ", ")
}

func textResult(text string) *schema.CallToolResult {
	return &schema.CallToolResult{
		Content: []schema.CallToolResultContentElem{&schema.TextContent{Type: "text", Text: text}},
	}
}

func errorResult(reason string) *schema.CallToolResult {
	isError := true
	result := textResult(reason)
	result.IsError = &isError
	return result
}

func rpcError(err error) *jsonrpc.Error {
	if errs.Is(err, errs.KindProtocol) {
		return jsonrpc.NewInvalidRequest(err.Error(), nil)
	}
	return jsonrpc.NewInternalError(err.Error(), nil)
}
