package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishRecordsMessages(t *testing.T) {
	t.Parallel()

	p := New()
	id, err := p.Publish(context.Background(), "ratings", map[string]any{"puzzle_id": 7})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)

	msgs := p.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "ratings", msgs[0].Topic)
}

func TestPublishFailWith(t *testing.T) {
	t.Parallel()

	p := New()
	p.FailWith(errors.New("topic gone"))

	_, err := p.Publish(context.Background(), "ratings", nil)
	require.ErrorContains(t, err, "topic gone")
	require.Empty(t, p.Messages())
}
