package agent

const (
	DefaultBaseURL   = "https://api.salesforce.com"
	apiPath          = "/einstein/ai-agent/v1"
	EndReasonHeader  = "x-session-end-reason"
	EndReasonUser    = "UserRequest"
	MessageTypeText  = "Text"
	ChunkTypeText    = "Text"
	EventStreamMedia = "text/event-stream"
)

// OpenRequest is the session open payload.
type OpenRequest struct {
	ExternalSessionKey    string                `json:"externalSessionKey"`
	InstanceConfig        InstanceConfig        `json:"instanceConfig"`
	StreamingCapabilities StreamingCapabilities `json:"streamingCapabilities"`
	BypassUser            bool                  `json:"bypassUser"`
}

type InstanceConfig struct {
	Endpoint string `json:"endpoint"`
}

type StreamingCapabilities struct {
	ChunkTypes []string `json:"chunkTypes"`
}

// OpenResponse is the session open reply; only the id is used.
type OpenResponse struct {
	SessionID string `json:"sessionId"`
}

// MessageRequest carries one user message.
type MessageRequest struct {
	Message Message `json:"message"`
}

type Message struct {
	SequenceID int64  `json:"sequenceId"`
	Type       string `json:"type"`
	Text       string `json:"text"`
}

func sessionsPath(agentID string) string {
	return apiPath + "/agents/" + agentID + "/sessions"
}

func sessionPath(sessionID string) string {
	return apiPath + "/sessions/" + sessionID
}

func messagesPath(sessionID string) string {
	return sessionPath(sessionID) + "/messages/stream"
}
