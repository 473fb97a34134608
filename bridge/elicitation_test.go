package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afmcp/errs"
)

func TestCoordinator_Answer(t *testing.T) {
	c := newCoordinator(time.Minute, time.Now)
	assert.ErrorIs(t, c.onAnswer("x", "42"), errs.ErrNoPendingElicitation)

	pending, err := c.onElicitation("Which order?", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, pending.ID)
	assert.Equal(t, pending.CreatedAt.Add(time.Minute), pending.ExpiresAt)

	_, err = c.onElicitation("Again?", nil)
	assert.ErrorIs(t, err, errs.ErrDuplicateElicitation)
	assert.True(t, errs.Is(err, errs.KindProtocol))
	assert.ErrorIs(t, c.onAnswer("other", "42"), errs.ErrElicitationMismatch)

	// answered before the wait starts
	require.NoError(t, c.onAnswer(pending.ID, "42"))
	assert.Nil(t, c.current())
	answer, err := c.wait(context.Background(), pending)
	require.NoError(t, err)
	assert.Equal(t, reply{text: "42"}, answer)
}

func TestCoordinator_Wait(t *testing.T) {
	c := newCoordinator(time.Minute, time.Now)
	pending, err := c.onElicitation("Which order?", []string{"A1", "B2"})
	require.NoError(t, err)
	go func() {
		time.Sleep(10 * time.Millisecond)
		assert.NoError(t, c.onDecline(pending.ID))
	}()
	answer, err := c.wait(context.Background(), pending)
	require.NoError(t, err)
	assert.True(t, answer.declined)
}

func TestCoordinator_WaitBounded(t *testing.T) {
	c := newCoordinator(20*time.Millisecond, time.Now)
	pending, err := c.onElicitation("Which order?", nil)
	require.NoError(t, err)
	_, err = c.wait(context.Background(), pending)
	assert.ErrorIs(t, err, errs.ErrElicitationTimeout)
	assert.Nil(t, c.current())

	c = newCoordinator(time.Minute, time.Now)
	pending, err = c.onElicitation("Which order?", nil)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	started := time.Now()
	_, err = c.wait(ctx, pending)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), time.Second)
	assert.ErrorIs(t, c.onAnswer(pending.ID, "late"), errs.ErrNoPendingElicitation)
}
