// Package profile stores creator profiles and conversation history in SQLite.
package profile

import (
	"time"
)

// UserProfile describes the content creator the agent works for.
type UserProfile struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Niche           string    `json:"niche"`
	ExpertiseAreas  []string  `json:"expertise_areas"`
	Platforms       []string  `json:"platforms"`
	Languages       []string  `json:"languages"`
	CulturalContext string    `json:"cultural_context"`
	LeadMagnets     []string  `json:"lead_magnets"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Summary renders the profile as prompt-ready text.
func (p *UserProfile) Summary() string {
	if p == nil {
		return "no profile on record"
	}
	s := p.Name
	if p.Niche != "" {
		s += ", niche: " + p.Niche
	}
	if len(p.ExpertiseAreas) > 0 {
		s += ", expertise: " + joinComma(p.ExpertiseAreas)
	}
	if len(p.Platforms) > 0 {
		s += ", platforms: " + joinComma(p.Platforms)
	}
	if len(p.Languages) > 0 {
		s += ", languages: " + joinComma(p.Languages)
	}
	if p.CulturalContext != "" {
		s += ", cultural context: " + p.CulturalContext
	}
	return s
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}

// ConversationTurn is one stored chat message.
type ConversationTurn struct {
	ID        int64     `json:"id"`
	ProfileID int64     `json:"profile_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
