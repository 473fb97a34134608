package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afmcp/errs"
)

const (
	defaultTimeout = 30 * time.Second
	closeTimeout   = 10 * time.Second
	maxErrorBody   = 4096
)

// Client calls the Agent API.
type Client struct {
	baseURL    string
	domainURL  string
	timeout    time.Duration
	transport  http.RoundTripper
	httpClient *http.Client
	logger     *slog.Logger
}

// StreamHandle is the open event stream of one message exchange.
type StreamHandle struct {
	Conversation *Conversation
	Body         io.ReadCloser
	cancel       context.CancelFunc
}

func (h *StreamHandle) Read(p []byte) (int, error) {
	return h.Body.Read(p)
}

// Close releases the stream.
func (h *StreamHandle) Close() error {
	err := h.Body.Close()
	h.cancel()
	return err
}

// Open starts a conversation with agentID.
func (c *Client) Open(ctx context.Context, agentID string) (*Conversation, error) {
	const op = "open session"
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	key := uuid.NewString()
	payload := &OpenRequest{
		ExternalSessionKey:    key,
		InstanceConfig:        InstanceConfig{Endpoint: c.domainURL},
		StreamingCapabilities: StreamingCapabilities{ChunkTypes: []string{ChunkTypeText}},
	}
	req, err := c.newRequest(ctx, http.MethodPost, sessionsPath(agentID), payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Classify(errs.KindUpstream, op, err)
	}
	defer resp.Body.Close()
	if err = checkStatus(op, resp); err != nil {
		return nil, err
	}
	opened := &OpenResponse{}
	if err = json.NewDecoder(resp.Body).Decode(opened); err != nil {
		return nil, errs.Upstream(op, fmt.Errorf("failed to decode response: %w", err))
	}
	if opened.SessionID == "" {
		return nil, errs.Upstream(op, fmt.Errorf("response had no sessionId"))
	}
	c.logger.Info("conversation opened", "conversation", opened.SessionID, "agent", agentID)
	return &Conversation{ID: opened.SessionID, AgentID: agentID, ExternalKey: key}, nil
}

// Send posts text to the conversation and returns the response stream. The
// timeout applies until response headers arrive; the stream itself lives until
// ctx is done or the handle is closed.
func (c *Client) Send(ctx context.Context, conversation *Conversation, text string) (*StreamHandle, error) {
	const op = "send message"
	if conversation.Status() == StatusClosed {
		return nil, errs.ErrSessionClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	payload := &MessageRequest{Message: Message{
		SequenceID: conversation.NextSequence(),
		Type:       MessageTypeText,
		Text:       text,
	}}
	req, err := c.newRequest(ctx, http.MethodPost, messagesPath(conversation.ID), payload)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", EventStreamMedia)
	headers := time.AfterFunc(c.timeout, cancel)
	resp, err := c.httpClient.Do(req)
	timedOut := !headers.Stop()
	if err != nil {
		cancel()
		if timedOut {
			return nil, errs.Timeout(op, fmt.Errorf("no response headers within %s: %w", c.timeout, err))
		}
		return nil, errs.Classify(errs.KindUpstream, op, err)
	}
	if err = checkStatus(op, resp); err != nil {
		_ = resp.Body.Close()
		cancel()
		return nil, err
	}
	return &StreamHandle{Conversation: conversation, Body: resp.Body, cancel: cancel}, nil
}

// Close ends the conversation. It never fails; problems are logged. Closing a
// closed conversation does nothing.
func (c *Client) Close(ctx context.Context, conversation *Conversation) {
	if conversation == nil || !conversation.markClosed() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodDelete, sessionPath(conversation.ID), nil)
	if err != nil {
		c.logger.Warn("failed to close conversation", "conversation", conversation.ID, "error", err)
		return
	}
	req.Header.Set(EndReasonHeader, EndReasonUser)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("failed to close conversation", "conversation", conversation.ID, "error", err)
		return
	}
	defer resp.Body.Close()
	if err = checkStatus("close session", resp); err != nil {
		c.logger.Warn("failed to close conversation", "conversation", conversation.ID, "error", err)
		return
	}
	c.logger.Info("conversation closed", "conversation", conversation.ID)
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload interface{}) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %T: %w", payload, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return errs.Status(errs.KindUpstream, op, resp.StatusCode, fmt.Errorf("%s", readDetail(resp)))
}

func readDetail(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	if detail := strings.TrimSpace(string(data)); detail != "" {
		return detail
	}
	return http.StatusText(resp.StatusCode)
}

// New creates a client authorized by tokens.
func New(tokens TokenSource, options ...Option) *Client {
	ret := &Client{
		baseURL: DefaultBaseURL,
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range options {
		opt(ret)
	}
	ret.baseURL = strings.TrimRight(ret.baseURL, "/")
	ret.httpClient = &http.Client{Transport: NewRoundTripper(tokens, ret.transport)}
	return ret
}
