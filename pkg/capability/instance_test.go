package capability

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llm"
	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llmerrors"
)

func TestParseLabelledFields(t *testing.T) {
	fields := []FieldSpec{
		{Name: "content_text", Desc: "the post body"},
		{Name: "hashtags", Desc: "hashtags"},
		{Name: "call_to_action", Desc: "the CTA"},
	}

	t.Run("plain labels", func(t *testing.T) {
		out := parseLabelledFields("content_text: hello world\nhashtags: #a #b\ncall_to_action: follow us", fields)
		assert.Equal(t, map[string]string{
			"content_text":   "hello world",
			"hashtags":       "#a #b",
			"call_to_action": "follow us",
		}, out)
	})

	t.Run("continuation lines attach to the preceding field", func(t *testing.T) {
		out := parseLabelledFields("content_text: first line\nsecond line\n\nhashtags: #a", fields)
		assert.Equal(t, "first line\nsecond line", out["content_text"])
		assert.Equal(t, "#a", out["hashtags"])
	})

	t.Run("markdown decorated labels", func(t *testing.T) {
		out := parseLabelledFields("**Content_Text**: hola\n## hashtags: #fit", fields)
		assert.Equal(t, "hola", out["content_text"])
		assert.Equal(t, "#fit", out["hashtags"])
	})

	t.Run("unknown labels are ignored", func(t *testing.T) {
		out := parseLabelledFields("reasoning: because\ncontent_text: hola", fields)
		_, ok := out["reasoning"]
		assert.False(t, ok)
		assert.Equal(t, "hola", out["content_text"])
	})

	t.Run("empty values are dropped", func(t *testing.T) {
		out := parseLabelledFields("content_text:\nhashtags: #a", fields)
		_, ok := out["content_text"]
		assert.False(t, ok)
	})
}

// TestInvokeParsesOutputs verifies the end-to-end shape: request carries the
// system protocol and the rendered inputs, and labelled output lines come
// back as a map.
func TestInvokeParsesOutputs(t *testing.T) {
	mock := llm.NewMockClient([]llm.CompletionResponse{
		{Content: "trending_topics: morning routines, desk stretches\nrelevance_notes: both fit the fitness niche"},
	}, nil)
	factory := NewFactory(mock)

	inst, err := factory.Create(KindDeliberative, "TrendAnalyzer", "")
	require.NoError(t, err)

	out, err := inst.Invoke(t.Context(), map[string]string{
		"posts": "post one\npost two",
		"niche": "fitness",
	})
	require.NoError(t, err)
	assert.Equal(t, "morning routines, desk stretches", out["trending_topics"])
	assert.Equal(t, "both fit the fitness niche", out["relevance_notes"])

	require.Len(t, mock.Requests, 1)
	req := mock.Requests[0]
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "step by step")
	assert.Contains(t, req.Messages[0].Content, "trending_topics:")
	assert.Equal(t, llm.RoleUser, req.Messages[1].Role)
	assert.Contains(t, req.Messages[1].Content, "fitness")
}

// TestInvokeUnstructuredReply verifies a reply with no labelled lines is
// attributed wholesale to the first output field.
func TestInvokeUnstructuredReply(t *testing.T) {
	mock := llm.NewMockClient([]llm.CompletionResponse{
		{Content: "Here are some thoughts about what is trending right now."},
	}, nil)
	factory := NewFactory(mock)

	inst, err := factory.Create(KindDirect, "TrendAnalyzer", "")
	require.NoError(t, err)

	out, err := inst.Invoke(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Here are some thoughts about what is trending right now.", out["trending_topics"])
}

// TestInvokePropagatesClientError verifies LLM failures surface to the caller
// with the capability named, preserving the wrapped error for classification.
func TestInvokePropagatesClientError(t *testing.T) {
	mock := llm.NewMockClient(nil, []error{
		llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "slow down"),
	})
	factory := NewFactory(mock)

	inst, err := factory.Create(KindDirect, "ConversationManager", "")
	require.NoError(t, err)

	_, err = inst.Invoke(t.Context(), map[string]string{"message": "hola"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ConversationManager")
	assert.Equal(t, llmerrors.ErrorTypeRateLimit, llmerrors.Classify(err).Type)
}

func TestTruncatePrompt(t *testing.T) {
	short := "short prompt"
	assert.Equal(t, short, truncatePrompt(short, 100))

	long := strings.Repeat("x", 1000)
	assert.Len(t, truncatePrompt(long, 100), 400)
}
