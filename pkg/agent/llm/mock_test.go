package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMockClientSequencing verifies errors are consumed before responses and
// nil error slots are skipped.
func TestMockClientSequencing(t *testing.T) {
	boom := errors.New("boom")
	mock := NewMockClient(
		[]CompletionResponse{{Content: "first"}, {Content: "second"}},
		[]error{boom, nil},
	)

	_, err := mock.Complete(t.Context(), NewCompletionRequest(nil))
	assert.ErrorIs(t, err, boom)

	resp, err := mock.Complete(t.Context(), NewCompletionRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)

	resp, err = mock.Complete(t.Context(), NewCompletionRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Content)

	_, err = mock.Complete(t.Context(), NewCompletionRequest(nil))
	assert.ErrorContains(t, err, "no more responses")

	assert.Len(t, mock.Requests, 4)
}

func TestMockClientStream(t *testing.T) {
	mock := NewMockClient([]CompletionResponse{{Content: "streamed"}}, nil)

	ch, err := mock.Stream(t.Context(), NewCompletionRequest(nil))
	require.NoError(t, err)

	chunk, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, "streamed", chunk.Content)
	assert.True(t, chunk.Done)

	_, ok = <-ch
	assert.False(t, ok, "stream must close after the final chunk")
}
