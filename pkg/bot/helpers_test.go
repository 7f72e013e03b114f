package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llm"
	"github.com/joshn8er2022/content-marketing-agent/pkg/profile"
)

func TestTrendQuery(t *testing.T) {
	assert.Equal(t, "yoga", trendQuery("anything", map[string]any{CtxContentType: "yoga"}))
	assert.Equal(t, "morning", trendQuery("Create content about morning routines", nil))
	assert.Equal(t, "content marketing", trendQuery("hi", nil))
}

func TestContainsAny(t *testing.T) {
	assert.True(t, containsAny("write a post about squats", contentKeywords))
	assert.True(t, containsAny("what's trending in fitness", trendKeywords))
	assert.False(t, containsAny("schedule the shoot", contentKeywords))
}

func TestSplitTopics(t *testing.T) {
	assert.Nil(t, splitTopics(""))
	assert.Equal(t, []string{"a", "b c"}, splitTopics("a, b c,  ,"))
}

func TestStringCtx(t *testing.T) {
	ctx := map[string]any{CtxPlatform: "tiktok", CtxLanguage: ""}
	assert.Equal(t, "tiktok", stringCtx(ctx, CtxPlatform, "instagram"))
	assert.Equal(t, "English", stringCtx(ctx, CtxLanguage, "English"))
	assert.Equal(t, "instagram", stringCtx(nil, CtxPlatform, "instagram"))
}

func TestStrategyOrTask(t *testing.T) {
	assert.Equal(t, "use hooks", strategyOrTask("use hooks", "task"))
	assert.Equal(t, "Create engaging content for: task", strategyOrTask("", "task"))
}

func TestFormatProfileMap(t *testing.T) {
	out := formatProfileMap(map[string]any{"name": "Ana", "niche": "fitness", "followers": 900})
	assert.Contains(t, out, "name: Ana")
	assert.Contains(t, out, "niche: fitness")
	assert.NotContains(t, out, "followers")
}

// TestProfileSummarySources verifies the precedence: caller context first in
// any supported shape, then the store, then the default.
func TestProfileSummarySources(t *testing.T) {
	b := newOfflineBot(t, llm.NewMockClient(nil, nil), nil)

	assert.Equal(t, "handed in directly",
		b.profileSummary(t.Context(), map[string]any{CtxUserProfile: "handed in directly"}))

	fromStruct := b.profileSummary(t.Context(), map[string]any{
		CtxUserProfile: &profile.UserProfile{Name: "Ana", Niche: "fitness"},
	})
	assert.Contains(t, fromStruct, "Ana")

	assert.Equal(t, "no profile on record", b.profileSummary(t.Context(), nil))

	store := openTestStore(t)
	_, err := store.SaveProfile(t.Context(), &profile.UserProfile{Name: "Luis", Niche: "cooking"})
	assert.NoError(t, err)
	b.store = store
	assert.Contains(t, b.profileSummary(t.Context(), nil), "Luis")
}

func TestFallbackContentCompletes(t *testing.T) {
	out := fallbackContent("write a caption", "instagram", "Spanish", "meal prep, snacks")
	assert.NotEmpty(t, out["content_text"])
	assert.Equal(t, "Spanish", out["language"])
	assert.Equal(t, true, out["fallback"])
	assert.Equal(t, []string{"meal prep", "snacks"}, out["trending_topics"])
}
