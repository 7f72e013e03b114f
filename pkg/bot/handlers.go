package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/joshn8er2022/content-marketing-agent/pkg/agent"
	"github.com/joshn8er2022/content-marketing-agent/pkg/capability"
)

// handleThink analyzes the task and outlines an approach. The output stays
// under non-terminal keys so analysis alone never completes a run.
func (b *Bot) handleThink(ctx context.Context, task string, callerCtx map[string]any, st *agent.AgentState) (map[string]any, error) {
	inst, err := b.caps.CreateFor(capability.KindDeliberative, "ConversationManager", "", b.analysisClient)
	if err != nil {
		return nil, err
	}
	out, err := inst.Invoke(ctx, map[string]string{
		"message":      "Analyze this task and outline the steps needed to accomplish it: " + task,
		"user_profile": b.profileSummary(ctx, callerCtx),
		"history":      "",
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"analysis":   out["response"],
		"complexity": st.Complexity,
	}, nil
}

// handleAct dispatches on task keywords to the content pipeline, trend
// analysis, or the chat path, with a general analysis fallback.
func (b *Bot) handleAct(ctx context.Context, task string, callerCtx map[string]any, st *agent.AgentState) (map[string]any, error) {
	return b.dispatchAction(ctx, task, callerCtx, st, "")
}

// handleRethink re-analyzes the task seeded with whatever the previous
// iteration produced, error or result.
func (b *Bot) handleRethink(ctx context.Context, task string, callerCtx map[string]any, st *agent.AgentState) (map[string]any, error) {
	seed := "no previous result"
	if st.LastResult != nil {
		if errMsg, ok := st.LastResult[agent.KeyError].(string); ok {
			seed = "the previous attempt failed with: " + errMsg
		} else {
			seed = fmt.Sprintf("the previous attempt produced: %v", st.LastResult)
		}
	}

	inst, err := b.caps.CreateFor(capability.KindDeliberative, "ConversationManager", "", b.analysisClient)
	if err != nil {
		return nil, err
	}
	out, err := inst.Invoke(ctx, map[string]string{
		"message":      fmt.Sprintf("Reconsider the approach for this task: %s. Note that %s. Suggest a better approach.", task, seed),
		"user_profile": b.profileSummary(ctx, callerCtx),
		"history":      "",
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"revised_analysis": out["response"]}, nil
}

// handlePlan formulates a content strategy for the task.
func (b *Bot) handlePlan(ctx context.Context, task string, callerCtx map[string]any, _ *agent.AgentState) (map[string]any, error) {
	inst, err := b.caps.CreateFor(capability.KindDeliberative, "ContentStrategist", "", b.analysisClient)
	if err != nil {
		return nil, err
	}
	out, err := inst.Invoke(ctx, map[string]string{
		"trending_topics": b.cachedTrends(),
		"user_profile":    b.profileSummary(ctx, callerCtx),
		"platform":        stringCtx(callerCtx, CtxPlatform, "instagram"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"strategy":   out["strategy"],
		"hook_ideas": out["hook_ideas"],
		"task":       task,
	}, nil
}

// handleExecute re-runs the action dispatch with the plan's strategy as
// extra context.
func (b *Bot) handleExecute(ctx context.Context, task string, callerCtx map[string]any, st *agent.AgentState) (map[string]any, error) {
	var strategy string
	if st.LastResult != nil {
		if s, ok := st.LastResult["strategy"].(string); ok {
			strategy = s
		}
	}
	return b.dispatchAction(ctx, task, callerCtx, st, strategy)
}

// handleCreate instantiates a capability requested through the context map,
// or falls through to the content pipeline when the task is about content.
func (b *Bot) handleCreate(ctx context.Context, task string, callerCtx map[string]any, st *agent.AgentState) (map[string]any, error) {
	if descName, ok := callerCtx[CtxCapability].(string); ok && descName != "" {
		kind := capability.KindDeliberative
		if kindStr, ok := callerCtx[CtxCapabilityKind].(string); ok && kindStr != "" {
			parsed, err := capability.ParseKind(kindStr)
			if err != nil {
				return nil, err
			}
			kind = parsed
		}
		name, _ := callerCtx[CtxCapabilityName].(string)
		inst, err := b.caps.Create(kind, descName, name)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"created_capability": inst.Descriptor.Name,
			"capability_kind":    string(inst.Kind),
			"capability_name":    name,
		}, nil
	}

	if containsAny(strings.ToLower(task), contentKeywords) {
		return b.contentPipeline(ctx, task, callerCtx, "")
	}
	return map[string]any{"note": "no capability requested and task is not content creation"}, nil
}

// Keyword sets for action dispatch.
var (
	contentKeywords = []string{"content", "post", "write", "create", "caption", "reel", "video script"}
	trendKeywords   = []string{"trend", "viral", "popular", "what's hot", "whats hot"}
	chatKeywords    = []string{"?", "how ", "what ", "why ", "help", "explain", "advice"}
)

// dispatchAction is ACT's keyword routing, shared with EXECUTE.
func (b *Bot) dispatchAction(ctx context.Context, task string, callerCtx map[string]any, _ *agent.AgentState, strategy string) (map[string]any, error) {
	lower := strings.ToLower(task)
	switch {
	case containsAny(lower, contentKeywords):
		return b.contentPipeline(ctx, task, callerCtx, strategy)
	case containsAny(lower, trendKeywords):
		return b.trendAnalysis(ctx, task, callerCtx)
	case containsAny(lower, chatKeywords):
		return b.chatResponse(ctx, task, callerCtx)
	default:
		return b.generalResponse(ctx, task, callerCtx)
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func stringCtx(callerCtx map[string]any, key, fallback string) string {
	if v, ok := callerCtx[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
