package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llm"
)

func TestSplitSystemExtractsSystemPrompt(t *testing.T) {
	system, rest, err := splitSystem([]llm.CompletionMessage{
		llm.NewSystemMessage("you are a content strategist"),
		llm.NewUserMessage("draft a caption"),
	})
	require.NoError(t, err)
	assert.Equal(t, "you are a content strategist", system)
	require.Len(t, rest, 1)
	assert.Equal(t, llm.RoleUser, rest[0].Role)
}

// TestSplitSystemMergesConsecutiveUser verifies adjacent user messages are
// merged so the sequence alternates as the API requires.
func TestSplitSystemMergesConsecutiveUser(t *testing.T) {
	system, rest, err := splitSystem([]llm.CompletionMessage{
		llm.NewSystemMessage("context A"),
		llm.NewSystemMessage("context B"),
		llm.NewUserMessage("first"),
		llm.NewUserMessage("second"),
		llm.NewAssistantMessage("draft"),
		llm.NewUserMessage("revise it"),
	})
	require.NoError(t, err)
	assert.Equal(t, "context A\n\ncontext B", system)
	require.Len(t, rest, 3)
	assert.Equal(t, "first\n\nsecond", rest[0].Content)
	assert.Equal(t, llm.RoleAssistant, rest[1].Role)
	assert.Equal(t, "revise it", rest[2].Content)
}

func TestSplitSystemRejectsInvalidShapes(t *testing.T) {
	_, _, err := splitSystem(nil)
	assert.Error(t, err)

	_, _, err = splitSystem([]llm.CompletionMessage{llm.NewSystemMessage("only system")})
	assert.Error(t, err)

	_, _, err = splitSystem([]llm.CompletionMessage{
		llm.NewUserMessage("question"),
		llm.NewAssistantMessage("dangling answer"),
	})
	assert.Error(t, err)
}

func TestModelName(t *testing.T) {
	client := NewClaudeClientWithModel("sk-ant-test", "claude-3-5-haiku-20241022")
	assert.Equal(t, "claude-3-5-haiku-20241022", client.ModelName())
}
