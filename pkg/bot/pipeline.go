package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joshn8er2022/content-marketing-agent/pkg/capability"
	"github.com/joshn8er2022/content-marketing-agent/pkg/scraper"
)

// contentPipeline runs the trends → strategy → creation chain. A failing LLM
// step degrades to template content rather than failing the iteration; no
// content at all is worse than plain content.
func (b *Bot) contentPipeline(ctx context.Context, task string, callerCtx map[string]any, strategy string) (map[string]any, error) {
	platform := stringCtx(callerCtx, CtxPlatform, "instagram")
	language := stringCtx(callerCtx, CtxLanguage, "English")
	prof := b.profileSummary(ctx, callerCtx)

	trends := b.getTrends(ctx, trendQuery(task, callerCtx))

	topics := ""
	if analyzer, err := b.caps.CreateFor(capability.KindDeliberative, "TrendAnalyzer", "", b.analysisClient); err == nil {
		if out, err := analyzer.Invoke(ctx, map[string]string{
			"posts": trends,
			"niche": prof,
		}); err == nil {
			topics = out["trending_topics"]
		} else {
			b.logger.Warn("trend analysis step failed, continuing without topics: %v", err)
		}
	}

	if strategy == "" {
		if strategist, err := b.caps.CreateFor(capability.KindDeliberative, "ContentStrategist", "", b.contentClient); err == nil {
			if out, err := strategist.Invoke(ctx, map[string]string{
				"trending_topics": topics,
				"user_profile":    prof,
				"platform":        platform,
			}); err == nil {
				strategy = out["strategy"]
			} else {
				b.logger.Warn("strategy step failed, creating without one: %v", err)
			}
		}
	}

	creator, err := b.caps.CreateFor(capability.KindDeliberative, "BilingualContentCreator", "", b.contentClient)
	if err != nil {
		return nil, err
	}
	out, err := creator.Invoke(ctx, map[string]string{
		"strategy":         strategyOrTask(strategy, task),
		"platform":         platform,
		"language":         language,
		"cultural_context": stringCtx(callerCtx, "cultural_context", ""),
	})
	if err != nil {
		b.logger.Warn("content creation failed, using template fallback: %v", err)
		return fallbackContent(task, platform, language, topics), nil
	}

	result := map[string]any{
		"content_text":   out["content_text"],
		"hashtags":       out["hashtags"],
		"call_to_action": out["call_to_action"],
		"platform":       platform,
		"language":       language,
		"success":        true,
	}
	if topics != "" {
		result["trending_topics"] = splitTopics(topics)
	}
	if strategy != "" {
		result["strategy"] = strategy
	}
	return result, nil
}

// trendAnalysis scrapes and summarizes what is currently trending.
func (b *Bot) trendAnalysis(ctx context.Context, task string, callerCtx map[string]any) (map[string]any, error) {
	trends := b.getTrends(ctx, trendQuery(task, callerCtx))

	analyzer, err := b.caps.CreateFor(capability.KindDeliberative, "TrendAnalyzer", "", b.analysisClient)
	if err != nil {
		return nil, err
	}
	out, err := analyzer.Invoke(ctx, map[string]string{
		"posts": trends,
		"niche": b.profileSummary(ctx, callerCtx),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"trending_topics": splitTopics(out["trending_topics"]),
		"relevance_notes": out["relevance_notes"],
	}, nil
}

// chatResponse answers a creator question, pulling live trend data into the
// prompt when the question asks about it, and persisting the turn when a
// profile store is attached.
func (b *Bot) chatResponse(ctx context.Context, task string, callerCtx map[string]any) (map[string]any, error) {
	message := task
	if containsAny(strings.ToLower(task), trendKeywords) {
		if trends := b.getTrends(ctx, trendQuery(task, callerCtx)); trends != "" {
			message += "\n\nCurrent data:\n" + trends
		}
	}

	history := ""
	var profileID int64
	if b.store != nil {
		if p, err := b.store.LatestProfile(ctx); err == nil {
			profileID = p.ID
			if turns, err := b.store.RecentConversation(ctx, p.ID, 10); err == nil {
				var lines []string
				for _, t := range turns {
					lines = append(lines, t.Role+": "+t.Content)
				}
				history = strings.Join(lines, "\n")
			}
		}
	}

	mgr, err := b.caps.CreateFor(capability.KindDirect, "ConversationManager", "", b.chatClient)
	if err != nil {
		return nil, err
	}
	out, err := mgr.Invoke(ctx, map[string]string{
		"message":      message,
		"user_profile": b.profileSummary(ctx, callerCtx),
		"history":      history,
	})
	if err != nil {
		return nil, err
	}

	response := out["response"]
	if b.store != nil && profileID != 0 {
		if err := b.store.AppendConversation(ctx, profileID, "user", task); err != nil {
			b.logger.Warn("persist user turn: %v", err)
		}
		if err := b.store.AppendConversation(ctx, profileID, "assistant", response); err != nil {
			b.logger.Warn("persist assistant turn: %v", err)
		}
	}
	return map[string]any{"response": response}, nil
}

// generalResponse is the fallback action for tasks no keyword set claims.
// Its output stays non-terminal so the loop keeps working the task.
func (b *Bot) generalResponse(ctx context.Context, task string, callerCtx map[string]any) (map[string]any, error) {
	inst, err := b.caps.CreateFor(capability.KindDirect, "ConversationManager", "", b.analysisClient)
	if err != nil {
		return nil, err
	}
	out, err := inst.Invoke(ctx, map[string]string{
		"message":      "Work on this task and report progress: " + task,
		"user_profile": b.profileSummary(ctx, callerCtx),
		"history":      "",
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"progress": out["response"]}, nil
}

// Optimize improves an existing post for a platform. Exposed for the CLI and
// not routed through the loop.
func (b *Bot) Optimize(ctx context.Context, content, platform, goal string) (map[string]string, error) {
	inst, err := b.caps.CreateFor(capability.KindDeliberative, "ContentOptimizer", "", b.contentClient)
	if err != nil {
		return nil, err
	}
	out, err := inst.Invoke(ctx, map[string]string{
		"content_text": content,
		"platform":     platform,
		"goal":         goal,
	})
	if err != nil {
		return nil, fmt.Errorf("optimize content: %w", err)
	}
	return out, nil
}

// getTrends returns formatted scraped trend data, served from the cache while
// fresh. An empty scrape (no API token, all platforms failing) caches the
// empty result too, so offline runs do not hammer the API.
func (b *Bot) getTrends(ctx context.Context, query string) string {
	b.trendsMu.Lock()
	if !b.trendsAt.IsZero() && time.Since(b.trendsAt) < b.cfg.TrendCacheTTL {
		data := b.trendsData
		b.trendsMu.Unlock()
		return data
	}
	b.trendsMu.Unlock()

	results := b.scraper.ScrapeMultiPlatform(ctx, query, b.cfg.Scraper.Platforms, b.cfg.Scraper.MaxResults)
	data := scraper.FormatResults(results)

	b.trendsMu.Lock()
	b.trendsData = data
	b.trendsAt = time.Now()
	b.trendsMu.Unlock()
	return data
}

// cachedTrends returns whatever is in the cache without refreshing.
func (b *Bot) cachedTrends() string {
	b.trendsMu.Lock()
	defer b.trendsMu.Unlock()
	return b.trendsData
}

// trendQuery picks the scrape query: explicit content type, then the first
// meaningful task word.
func trendQuery(task string, callerCtx map[string]any) string {
	if ct := stringCtx(callerCtx, CtxContentType, ""); ct != "" {
		return ct
	}
	for _, word := range strings.Fields(strings.ToLower(task)) {
		trimmed := strings.Trim(word, ".,!?")
		if len(trimmed) > 4 && !containsAny(trimmed, []string{"content", "create", "write", "about"}) {
			return trimmed
		}
	}
	return "content marketing"
}

func strategyOrTask(strategy, task string) string {
	if strategy != "" {
		return strategy
	}
	return "Create engaging content for: " + task
}

func splitTopics(topics string) []string {
	if topics == "" {
		return nil
	}
	parts := strings.Split(topics, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// fallbackContent is the template used when every LLM path fails. It still
// satisfies the completion predicate so a degraded run finishes instead of
// spinning.
func fallbackContent(task, platform, language, topics string) map[string]any {
	text := fmt.Sprintf("Here's a fresh take for %s: %s. Save this post and tell us what you think in the comments!", platform, task)
	result := map[string]any{
		"content_text":   text,
		"hashtags":       "#contentcreator #" + strings.ReplaceAll(strings.ToLower(platform), " ", ""),
		"call_to_action": "Follow for more!",
		"platform":       platform,
		"language":       language,
		"fallback":       true,
	}
	if topics != "" {
		result["trending_topics"] = splitTopics(topics)
	}
	return result
}
