package agent

import (
	"strings"
	"time"

	"github.com/joshn8er2022/content-marketing-agent/pkg/config"
)

// Result keys whose presence marks a run as complete. Completion is detected
// from the shape of a handler result, not from which state produced it.
const (
	KeyContentText    = "content_text"
	KeyResponse       = "response"
	KeyTrendingTopics = "trending_topics"
	KeySuccess        = "success"
	KeyError          = "error"
)

// complexityKeywords raise the estimated complexity of a task description.
var complexityKeywords = []string{
	"strategy",
	"campaign",
	"bilingual",
	"analyze",
	"optimize",
	"multi-platform",
	"series",
	"plan",
}

// EstimateComplexity maps a task description onto [0,1]. Longer tasks and
// tasks naming heavyweight operations score higher.
func EstimateComplexity(task string) float64 {
	if task == "" {
		return 0
	}

	// Length contributes up to 0.4, saturating around 30 words.
	words := len(strings.Fields(task))
	complexity := float64(words) / 30.0 * 0.4
	if complexity > 0.4 {
		complexity = 0.4
	}

	lower := strings.ToLower(task)
	for _, kw := range complexityKeywords {
		if strings.Contains(lower, kw) {
			complexity += 0.15
		}
	}

	if complexity > 1.0 {
		complexity = 1.0
	}
	return complexity
}

// ScoreResult computes success metrics from the shape of a handler result:
// whether terminal fields are present, how much content came back, and
// whether the handler reported success explicitly.
func ScoreResult(result map[string]any) map[string]float64 {
	metrics := make(map[string]float64)
	if len(result) == 0 {
		return metrics
	}

	if _, ok := result[KeyError]; ok {
		metrics["success"] = 0
		return metrics
	}

	var present int
	for _, key := range []string{KeyContentText, KeyResponse, KeyTrendingTopics} {
		if hasValue(result, key) {
			present++
		}
	}
	metrics["coverage"] = float64(present) / 3.0

	// Volume: normalized length of the primary text output, saturating at
	// a few hundred characters.
	var text string
	if s, ok := result[KeyContentText].(string); ok {
		text = s
	} else if s, ok := result[KeyResponse].(string); ok {
		text = s
	}
	volume := float64(len(text)) / 400.0
	if volume > 1.0 {
		volume = 1.0
	}
	metrics["volume"] = volume

	if b, ok := result[KeySuccess].(bool); ok && b {
		metrics["success"] = 1.0
	} else if present > 0 {
		metrics["success"] = 1.0
	} else {
		metrics["success"] = 0.5
	}

	return metrics
}

// IsComplete reports whether a handler result satisfies the completion
// predicate: an explicit success flag or any terminal output key.
func IsComplete(result map[string]any) bool {
	if len(result) == 0 {
		return false
	}
	if b, ok := result[KeySuccess].(bool); ok && b {
		return true
	}
	for _, key := range []string{KeyContentText, KeyResponse, KeyTrendingTopics} {
		if hasValue(result, key) {
			return true
		}
	}
	return false
}

// hasValue reports whether the key is present with a non-empty value.
func hasValue(result map[string]any, key string) bool {
	v, ok := result[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case []string:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

// SleepDuration computes a bounded cooldown from recent history. The base
// doubles under high recent iteration density (possible runaway loop) and
// scales further with repeated recent errors. Always clamped to
// [SleepBase, SleepMax].
func SleepDuration(history []StateSnapshot, cfg config.DecisionConfig) time.Duration {
	d := cfg.SleepBase

	cutoff := time.Now().Add(-cfg.FatigueWindow)
	var recent, errs int
	for i := range history {
		if history[i].Timestamp.After(cutoff) {
			recent++
			if history[i].ErrorOccurred {
				errs++
			}
		}
	}

	if cfg.FatigueScale > 0 && recent >= cfg.FatigueScale/2 {
		d *= 2
	}
	if cfg.SleepErrorThreshold > 0 && errs > cfg.SleepErrorThreshold {
		scale := 1 + float64(errs)/float64(cfg.SleepErrorThreshold)
		d = time.Duration(float64(d) * scale)
	}

	if d > cfg.SleepMax {
		d = cfg.SleepMax
	}
	if d < cfg.SleepBase {
		d = cfg.SleepBase
	}
	return d
}
