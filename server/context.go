package server

import (
	"context"
	"encoding/json"

	"github.com/viant/jsonrpc"
)

type contextKey string

const progressTokenKey contextKey = "progressToken"

// extractProgressToken returns the progressToken of request _meta, a string or
// a number.
func extractProgressToken(request *jsonrpc.Request) interface{} {
	meta := parameterMeta(request)
	if value, ok := meta["progressToken"]; ok && value != nil {
		return value
	}
	return nil
}

func progressToken(ctx context.Context) interface{} {
	return ctx.Value(progressTokenKey)
}

func parameterMeta(request *jsonrpc.Request) map[string]interface{} {
	type paramsMeta struct {
		Meta map[string]interface{} `json:"_meta,omitempty"`
	}
	meta := &paramsMeta{}
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, meta); err == nil && meta.Meta != nil {
			return meta.Meta
		}
	}
	return map[string]interface{}{}
}
