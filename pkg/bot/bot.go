// Package bot hosts the task-execution core: it owns the capability factory
// and its named instances, the trends cache, the scraper and profile store,
// and binds every control state to a concrete handler.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joshn8er2022/content-marketing-agent/pkg/agent"
	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llm"
	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/middleware/metrics"
	"github.com/joshn8er2022/content-marketing-agent/pkg/capability"
	"github.com/joshn8er2022/content-marketing-agent/pkg/config"
	"github.com/joshn8er2022/content-marketing-agent/pkg/logx"
	"github.com/joshn8er2022/content-marketing-agent/pkg/profile"
	"github.com/joshn8er2022/content-marketing-agent/pkg/scraper"
)

// Context keys recognized in the caller-supplied context map. Unrecognized
// keys pass through to handlers untouched.
const (
	CtxUserProfile    = "user_profile"
	CtxPlatform       = "platform"
	CtxContentType    = "content_type"
	CtxLanguage       = "language"
	CtxCapability     = "capability"
	CtxCapabilityKind = "capability_kind"
	CtxCapabilityName = "capability_name"
)

// Bot wires the loop, the LLM clients, the capability factory, the scraper
// and the profile store into one host object. One Bot serves sequential
// Execute calls; concurrent invocations need separate Bots.
type Bot struct {
	cfg     *config.Config
	loop    *agent.Loop
	caps    *capability.Factory
	scraper *scraper.Client
	store   *profile.Store // optional; nil disables history persistence
	logger  *logx.Logger

	analysisClient llm.LLMClient
	contentClient  llm.LLMClient
	chatClient     llm.LLMClient

	trendsMu   sync.Mutex
	trendsData string
	trendsAt   time.Time
}

// New builds a Bot from the configuration. store may be nil; recorder may be
// nil to disable metrics.
func New(cfg *config.Config, store *profile.Store, recorder metrics.Recorder) (*Bot, error) {
	b := &Bot{
		cfg:     cfg,
		scraper: scraper.NewClient(cfg.Scraper),
		store:   store,
		logger:  logx.NewLogger("bot"),
	}

	handlers := agent.HandlerMap{
		agent.StateThink:   b.handleThink,
		agent.StateAct:     b.handleAct,
		agent.StateRethink: b.handleRethink,
		agent.StatePlan:    b.handlePlan,
		agent.StateExecute: b.handleExecute,
		agent.StateCreate:  b.handleCreate,
	}
	b.loop = agent.NewLoop(cfg, agent.NewDecisionEngine(cfg.Decision, nil), handlers, recorder)

	llmFactory := agent.NewLLMClientFactory(cfg, recorder)
	var err error
	if b.analysisClient, err = llmFactory.CreateClient(agent.RoleAnalysis, b.loop, b.logger); err != nil {
		return nil, fmt.Errorf("build analysis client: %w", err)
	}
	if b.contentClient, err = llmFactory.CreateClient(agent.RoleContent, b.loop, b.logger); err != nil {
		return nil, fmt.Errorf("build content client: %w", err)
	}
	if b.chatClient, err = llmFactory.CreateClient(agent.RoleChat, b.loop, b.logger); err != nil {
		return nil, fmt.Errorf("build chat client: %w", err)
	}

	b.caps = capability.NewFactory(b.analysisClient)
	return b, nil
}

// Execute is the orchestrator entry point. Capability requests in the
// context map are resolved up front so that configuration defects surface to
// the caller instead of being absorbed by the loop's error handling.
func (b *Bot) Execute(ctx context.Context, task string, callerCtx map[string]any, maxIterations int) (*agent.ExecutionResult, error) {
	if callerCtx == nil {
		callerCtx = make(map[string]any)
	}
	if name, ok := callerCtx[CtxCapability].(string); ok && name != "" {
		if _, err := capability.Resolve(name); err != nil {
			return nil, fmt.Errorf("capability request: %w", err)
		}
		if kindStr, ok := callerCtx[CtxCapabilityKind].(string); ok && kindStr != "" {
			if _, err := capability.ParseKind(kindStr); err != nil {
				return nil, fmt.Errorf("capability request: %w", err)
			}
		}
	}
	return b.loop.Run(ctx, task, callerCtx, maxIterations)
}

// CreateCapability builds (and optionally retains) a capability instance
// directly, outside any run. Construction errors propagate.
func (b *Bot) CreateCapability(kind capability.Kind, descriptor, name string) (*capability.Instance, error) {
	return b.caps.Create(kind, descriptor, name)
}

// Capability returns a previously created named instance.
func (b *Bot) Capability(name string) (*capability.Instance, bool) {
	return b.caps.Get(name)
}

// StateSummary is the read-only diagnostic surface for operator tooling.
func (b *Bot) StateSummary() map[string]any {
	b.trendsMu.Lock()
	cacheStatus := map[string]any{
		"cached": b.trendsData != "",
		"ttl":    b.cfg.TrendCacheTTL.String(),
	}
	if !b.trendsAt.IsZero() {
		cacheStatus["age"] = time.Since(b.trendsAt).String()
	}
	b.trendsMu.Unlock()

	return map[string]any{
		"current_state":          b.loop.CurrentState(),
		"run_id":                 b.loop.RunID(),
		"created_instance_names": b.caps.InstanceNames(),
		"available_capabilities": capability.CatalogNames(),
		"cache_status":           cacheStatus,
		"models": map[string]string{
			"analysis": b.cfg.Models.Analysis,
			"content":  b.cfg.Models.Content,
			"chat":     b.cfg.Models.Chat,
		},
	}
}

// profileSummary resolves the creator profile description from the caller
// context first, then the store.
func (b *Bot) profileSummary(ctx context.Context, callerCtx map[string]any) string {
	if v, ok := callerCtx[CtxUserProfile]; ok {
		switch p := v.(type) {
		case string:
			return p
		case map[string]any:
			return formatProfileMap(p)
		case *profile.UserProfile:
			return p.Summary()
		}
	}
	if b.store != nil {
		if p, err := b.store.LatestProfile(ctx); err == nil {
			return p.Summary()
		}
	}
	return "no profile on record"
}

func formatProfileMap(p map[string]any) string {
	out := ""
	for _, key := range []string{"name", "niche", "expertise", "platforms", "languages", "cultural_context"} {
		if v, ok := p[key]; ok {
			if out != "" {
				out += ", "
			}
			out += fmt.Sprintf("%s: %v", key, v)
		}
	}
	if out == "" {
		return fmt.Sprintf("%v", p)
	}
	return out
}
