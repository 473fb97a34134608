package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/jsonrpc"
)

type cancelledParams struct {
	RequestID jsonrpc.RequestId `json:"requestId"`
	Reason    string            `json:"reason,omitempty"`
}

// Cancel stops the in-flight request named by a cancelled notification.
func (h *Handler) Cancel(ctx context.Context, notification *jsonrpc.Notification) *jsonrpc.Error {
	var params cancelledParams
	if err := json.Unmarshal(notification.Params, &params); err != nil {
		return jsonrpc.NewParsingError(fmt.Sprintf("failed to parse notification: %v", err), notification.Params)
	}
	if params.RequestID == nil {
		return jsonrpc.NewInvalidParamsError("invalid requestId", notification.Params)
	}
	id, ok := jsonrpc.AsRequestIntId(params.RequestID)
	if !ok {
		return jsonrpc.NewInvalidParamsError(fmt.Sprintf("invalid requestId: %v", params.RequestID), notification.Params)
	}
	h.logger.Info("request cancelled by client", "request", id, "reason", params.Reason)
	h.cancelOperation(id)
	return nil
}
