package agent_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afmcp/agent"
	"github.com/viant/afmcp/agent/mock"
	"github.com/viant/afmcp/auth"
	"github.com/viant/afmcp/errs"
)

func newClient(t *testing.T) (*mock.Service, *agent.Client) {
	service, err := mock.New()
	require.NoError(t, err)
	server := service.Start()
	t.Cleanup(server.Close)
	tokens, err := auth.New(&auth.Config{ClientID: service.ClientID, ClientSecret: service.ClientSecret, DomainURL: server.URL})
	require.NoError(t, err)
	return service, agent.New(tokens, agent.WithBaseURL(server.URL), agent.WithDomainURL("https://org.my.salesforce.com"))
}

func TestClient_Lifecycle(t *testing.T) {
	service, client := newClient(t)
	ctx := context.Background()
	service.Enqueue(mock.Answer("hello there"), mock.Answer("bye"))

	conversation, err := client.Open(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", conversation.ID)
	assert.NotEmpty(t, conversation.ExternalKey)

	for _, text := range []string{"hi", "see you"} {
		handle, err := client.Send(ctx, conversation, text)
		require.NoError(t, err)
		data, err := io.ReadAll(handle)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"EndOfTurn"`)
		require.NoError(t, handle.Close())
	}
	messages := service.Messages(conversation.ID)
	require.Len(t, messages, 2)
	assert.EqualValues(t, 1, messages[0].SequenceID)
	assert.EqualValues(t, 2, messages[1].SequenceID)
	assert.Equal(t, "see you", messages[1].Text)
	assert.Equal(t, agent.MessageTypeText, messages[1].Type)

	client.Close(ctx, conversation)
	client.Close(ctx, conversation)
	assert.Equal(t, agent.StatusClosed, conversation.Status())
	assert.Equal(t, []string{conversation.ID}, service.Deleted())
	assert.False(t, service.Open(conversation.ID))

	_, err = client.Send(ctx, conversation, "again")
	assert.True(t, errors.Is(err, errs.ErrSessionClosed))
}

func TestClient_OpenPayload(t *testing.T) {
	service, client := newClient(t)
	_, err := client.Open(context.Background(), "agent-1")
	require.NoError(t, err)
	requests := service.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "/einstein/ai-agent/v1/agents/agent-1/sessions", requests[0].Path)
	assert.JSONEq(t, `{"externalSessionKey":"`+extractKey(t, requests[0].Body)+`","instanceConfig":{"endpoint":"https://org.my.salesforce.com"},"streamingCapabilities":{"chunkTypes":["Text"]},"bypassUser":false}`, string(requests[0].Body))
}

func TestClient_TokenRejection(t *testing.T) {
	var testCases = []struct {
		description   string
		rejections    int
		expectErr     bool
		expectTokens  int
		expectAttempt int
	}{
		{description: "refreshed once", rejections: 1, expectTokens: 2, expectAttempt: 2},
		{description: "rejected after refresh", rejections: 2, expectErr: true, expectTokens: 2, expectAttempt: 2},
	}
	for _, testCase := range testCases {
		service, client := newClient(t)
		service.RejectTokens(testCase.rejections)
		conversation, err := client.Open(context.Background(), "agent-1")
		if testCase.expectErr {
			assert.True(t, errs.Is(err, errs.KindAuth), testCase.description)
			assert.Nil(t, conversation, testCase.description)
		} else {
			assert.NoError(t, err, testCase.description)
		}
		assert.Equal(t, testCase.expectTokens, service.TokenRequests(), testCase.description)
		assert.Len(t, service.Requests(), testCase.expectAttempt, testCase.description)
	}
}

func TestClient_UpstreamStatus(t *testing.T) {
	service, client := newClient(t)
	ctx := context.Background()
	service.Enqueue(mock.Turn{Status: http.StatusServiceUnavailable})
	conversation, err := client.Open(ctx, "agent-1")
	require.NoError(t, err)
	_, err = client.Send(ctx, conversation, "hi")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindUpstream))
	var classified *errs.Error
	require.True(t, errors.As(err, &classified))
	assert.Equal(t, http.StatusServiceUnavailable, classified.Status)
	assert.Contains(t, err.Error(), "Service Unavailable")
}
