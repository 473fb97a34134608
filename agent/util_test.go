package agent_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/viant/afmcp/agent"
)

func extractKey(t *testing.T, body []byte) string {
	payload := &agent.OpenRequest{}
	require.NoError(t, json.Unmarshal(body, payload))
	return payload.ExternalSessionKey
}
