// Package capability provides the static capability catalog and the factory
// that turns a descriptor name into an executable LLM-backed handler
// instance.
package capability

import (
	"fmt"
	"strings"
)

// FieldSpec describes one named input or output of a capability.
type FieldSpec struct {
	Name string
	Desc string
}

// Descriptor specifies the calling contract of one operation shape. The
// catalog is fixed at process start and read-only at runtime.
type Descriptor struct {
	Name    string
	Purpose string
	Inputs  []FieldSpec
	Outputs []FieldSpec
}

// Catalog is the static set of supported capability descriptors.
var Catalog = []Descriptor{
	{
		Name:    "TrendAnalyzer",
		Purpose: "Analyze scraped social posts and surface trending topics relevant to the creator's niche",
		Inputs: []FieldSpec{
			{Name: "posts", Desc: "raw social media posts, one per line"},
			{Name: "niche", Desc: "the creator's content niche"},
		},
		Outputs: []FieldSpec{
			{Name: "trending_topics", Desc: "comma-separated trending topics"},
			{Name: "relevance_notes", Desc: "why each topic matters for the niche"},
		},
	},
	{
		Name:    "ContentStrategist",
		Purpose: "Formulate a posting strategy from trends and the creator profile",
		Inputs: []FieldSpec{
			{Name: "trending_topics", Desc: "topics to build on"},
			{Name: "user_profile", Desc: "creator profile summary"},
			{Name: "platform", Desc: "target platform"},
		},
		Outputs: []FieldSpec{
			{Name: "strategy", Desc: "the recommended content angle and format"},
			{Name: "hook_ideas", Desc: "candidate opening hooks"},
		},
	},
	{
		Name:    "BilingualContentCreator",
		Purpose: "Produce platform-ready post content in the creator's primary and secondary language",
		Inputs: []FieldSpec{
			{Name: "strategy", Desc: "content strategy to follow"},
			{Name: "platform", Desc: "target platform"},
			{Name: "language", Desc: "primary output language"},
			{Name: "cultural_context", Desc: "cultural framing for the audience"},
		},
		Outputs: []FieldSpec{
			{Name: "content_text", Desc: "the post body"},
			{Name: "hashtags", Desc: "suggested hashtags"},
			{Name: "call_to_action", Desc: "closing call to action"},
		},
	},
	{
		Name:    "ConversationManager",
		Purpose: "Answer a creator's question in the context of their profile and history",
		Inputs: []FieldSpec{
			{Name: "message", Desc: "the creator's message"},
			{Name: "user_profile", Desc: "creator profile summary"},
			{Name: "history", Desc: "recent conversation turns"},
		},
		Outputs: []FieldSpec{
			{Name: "response", Desc: "the assistant's reply"},
		},
	},
	{
		Name:    "ContentOptimizer",
		Purpose: "Improve an existing post for engagement on a specific platform",
		Inputs: []FieldSpec{
			{Name: "content_text", Desc: "the existing post"},
			{Name: "platform", Desc: "target platform"},
			{Name: "goal", Desc: "optimization goal (reach, saves, clicks)"},
		},
		Outputs: []FieldSpec{
			{Name: "optimized_text", Desc: "the improved post"},
			{Name: "changes", Desc: "what was changed and why"},
		},
	},
	{
		Name:    "ScraperQuery",
		Purpose: "Plan scraper queries (keywords, platforms, result counts) for a research goal",
		Inputs: []FieldSpec{
			{Name: "goal", Desc: "what the creator wants to learn"},
			{Name: "platforms", Desc: "platforms available to scrape"},
		},
		Outputs: []FieldSpec{
			{Name: "keywords", Desc: "comma-separated search keywords"},
			{Name: "result_count", Desc: "how many posts to fetch per platform"},
		},
	},
}

// CatalogNames returns the descriptor names in catalog order.
func CatalogNames() []string {
	names := make([]string, len(Catalog))
	for i := range Catalog {
		names[i] = Catalog[i].Name
	}
	return names
}

// ErrNotFound wraps descriptor resolution failures.
type ErrNotFound struct {
	Query string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("no capability descriptor matches %q", e.Query)
}

// Resolve finds a descriptor by name: case-insensitive exact match first,
// then substring match. Resolution failures indicate a configuration defect
// and must propagate to the caller.
func Resolve(name string) (*Descriptor, error) {
	lower := strings.ToLower(name)
	for i := range Catalog {
		if strings.ToLower(Catalog[i].Name) == lower {
			return &Catalog[i], nil
		}
	}
	for i := range Catalog {
		if strings.Contains(strings.ToLower(Catalog[i].Name), lower) {
			return &Catalog[i], nil
		}
	}
	return nil, &ErrNotFound{Query: name}
}
