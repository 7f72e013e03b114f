package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "contentbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleProfile() *UserProfile {
	return &UserProfile{
		Name:            "Ana",
		Niche:           "fitness coaching",
		ExpertiseAreas:  []string{"mobility", "strength"},
		Platforms:       []string{"instagram", "tiktok"},
		Languages:       []string{"English", "Spanish"},
		CulturalContext: "Mexican-American audience",
		LeadMagnets:     []string{"free mobility guide"},
	}
}

func TestSaveAndGetProfile(t *testing.T) {
	store := openTestStore(t)

	saved, err := store.SaveProfile(t.Context(), sampleProfile())
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	loaded, err := store.GetProfile(t.Context(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", loaded.Name)
	assert.Equal(t, []string{"mobility", "strength"}, loaded.ExpertiseAreas)
	assert.Equal(t, []string{"English", "Spanish"}, loaded.Languages)
	assert.Equal(t, "Mexican-American audience", loaded.CulturalContext)
}

func TestSaveProfileUpdates(t *testing.T) {
	store := openTestStore(t)

	saved, err := store.SaveProfile(t.Context(), sampleProfile())
	require.NoError(t, err)

	saved.Niche = "bilingual fitness content"
	saved.Platforms = append(saved.Platforms, "youtube")
	updated, err := store.SaveProfile(t.Context(), saved)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)

	loaded, err := store.GetProfile(t.Context(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "bilingual fitness content", loaded.Niche)
	assert.Equal(t, []string{"instagram", "tiktok", "youtube"}, loaded.Platforms)
}

func TestGetProfileNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetProfile(t.Context(), 999)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = store.LatestProfile(t.Context())
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestLatestProfilePicksNewest(t *testing.T) {
	store := openTestStore(t)

	first, err := store.SaveProfile(t.Context(), sampleProfile())
	require.NoError(t, err)

	second := sampleProfile()
	second.Name = "Luis"
	_, err = store.SaveProfile(t.Context(), second)
	require.NoError(t, err)

	// Updating the first profile makes it the most recent again.
	time.Sleep(5 * time.Millisecond)
	_, err = store.SaveProfile(t.Context(), first)
	require.NoError(t, err)

	latest, err := store.LatestProfile(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Ana", latest.Name)
}

func TestConversationHistory(t *testing.T) {
	store := openTestStore(t)

	p, err := store.SaveProfile(t.Context(), sampleProfile())
	require.NoError(t, err)

	for i, turn := range []struct{ role, content string }{
		{"user", "what should I post this week?"},
		{"assistant", "lean into the mobility series"},
		{"user", "in spanish too?"},
		{"assistant", "yes, alternate languages per post"},
	} {
		require.NoError(t, store.AppendConversation(t.Context(), p.ID, turn.role, turn.content), "turn %d", i)
	}

	turns, err := store.RecentConversation(t.Context(), p.ID, 0)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "what should I post this week?", turns[0].Content)
	assert.Equal(t, "yes, alternate languages per post", turns[3].Content)

	// A limit keeps the most recent turns, still returned oldest first.
	turns, err = store.RecentConversation(t.Context(), p.ID, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "in spanish too?", turns[0].Content)
	assert.Equal(t, "yes, alternate languages per post", turns[1].Content)
}

func TestRecentConversationEmptyProfile(t *testing.T) {
	store := openTestStore(t)

	p, err := store.SaveProfile(t.Context(), sampleProfile())
	require.NoError(t, err)

	turns, err := store.RecentConversation(t.Context(), p.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}
