package server

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/viant/mcp-protocol/schema"
)

// ToolName is the single tool exposed to MCP clients.
const ToolName = "ask_agentforce"

const toolDescription = "Ask the Agentforce agent a question. Answers stream as progress notifications; " +
	"the agent may ask a follow-up question before answering."

// AskInput is the ask_agentforce argument set.
type AskInput struct {
	UserQuery string `json:"user_query" jsonschema:"required,description=Message for the Agentforce agent"`
}

func askTool() (schema.Tool, error) {
	reflector := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	data, err := json.Marshal(reflector.Reflect(&AskInput{}))
	if err != nil {
		return schema.Tool{}, fmt.Errorf("failed to reflect %v input: %w", ToolName, err)
	}
	var inputSchema schema.ToolInputSchema
	if err = json.Unmarshal(data, &inputSchema); err != nil {
		return schema.Tool{}, fmt.Errorf("failed to load %v input schema: %w", ToolName, err)
	}
	description := toolDescription
	return schema.Tool{
		Name:        ToolName,
		Description: &description,
		InputSchema: inputSchema,
	}, nil
}

func (i *AskInput) load(arguments map[string]interface{}) error {
	data, err := json.Marshal(arguments)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(data, i); err != nil {
		return err
	}
	if i.UserQuery == "" {
		return fmt.Errorf("user_query was empty")
	}
	return nil
}
