package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llm"
	"github.com/joshn8er2022/content-marketing-agent/pkg/logx"
	"github.com/joshn8er2022/content-marketing-agent/pkg/utils"
)

// maxPromptTokens bounds rendered prompts; inputs that push past it are
// truncated rather than rejected.
const maxPromptTokens = 6000

// Instance is an executable handler built from a descriptor. The prompting
// strategy depends on the Kind it was constructed with.
type Instance struct {
	Descriptor *Descriptor
	Kind       Kind

	client  llm.LLMClient
	counter *utils.TokenCounter
	logger  *logx.Logger
}

// Invoke renders a prompt from the descriptor and the inputs, calls the LLM,
// and parses the labelled output fields. Missing inputs render as empty; the
// LLM error, if any, is returned unwrapped for the caller's classification.
func (in *Instance) Invoke(ctx context.Context, inputs map[string]string) (map[string]string, error) {
	prompt := in.renderPrompt(inputs)

	if n := in.counter.CountTokens(prompt); n > maxPromptTokens {
		in.logger.Warn("prompt for %s at %d tokens exceeds budget, truncating inputs", in.Descriptor.Name, n)
		prompt = truncatePrompt(prompt, maxPromptTokens)
	}

	req := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(in.systemPrompt()),
		llm.NewUserMessage(prompt),
	})

	resp, err := in.client.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("capability %s: %w", in.Descriptor.Name, err)
	}

	outputs := parseLabelledFields(resp.Content, in.Descriptor.Outputs)
	if len(outputs) == 0 {
		// Unstructured reply: attribute the whole text to the first
		// output field so callers still get usable content.
		outputs[in.Descriptor.Outputs[0].Name] = strings.TrimSpace(resp.Content)
	}
	return outputs, nil
}

// systemPrompt states the capability's purpose and, for non-direct kinds,
// the reasoning protocol.
func (in *Instance) systemPrompt() string {
	var b strings.Builder
	b.WriteString(in.Descriptor.Purpose)
	b.WriteString(".\n")

	switch in.Kind {
	case KindDeliberative:
		b.WriteString("Reason step by step before answering, then produce only the labelled output fields.\n")
	case KindReactiveLoop:
		b.WriteString("Work iteratively: consider what information is still missing, reason about it, and then produce only the labelled output fields.\n")
	case KindDirect:
		b.WriteString("Produce only the labelled output fields.\n")
	}

	b.WriteString("Output format, one field per line:\n")
	for _, f := range in.Descriptor.Outputs {
		fmt.Fprintf(&b, "%s: <%s>\n", f.Name, f.Desc)
	}
	return b.String()
}

// renderPrompt lists the declared inputs with their supplied values.
func (in *Instance) renderPrompt(inputs map[string]string) string {
	var b strings.Builder
	for _, f := range in.Descriptor.Inputs {
		fmt.Fprintf(&b, "%s (%s): %s\n", f.Name, f.Desc, inputs[f.Name])
	}
	return b.String()
}

// parseLabelledFields extracts "name: value" lines matching the declared
// output fields. Continuation lines attach to the preceding field.
func parseLabelledFields(text string, fields []FieldSpec) map[string]string {
	known := make(map[string]string, len(fields))
	for _, f := range fields {
		known[strings.ToLower(f.Name)] = f.Name
	}

	outputs := make(map[string]string)
	var current string
	for _, line := range strings.Split(text, "\n") {
		if name, value, ok := splitLabel(line, known); ok {
			outputs[name] = value
			current = name
			continue
		}
		if current != "" && strings.TrimSpace(line) != "" {
			outputs[current] += "\n" + strings.TrimSpace(line)
		}
	}

	for k, v := range outputs {
		outputs[k] = strings.TrimSpace(v)
		if outputs[k] == "" {
			delete(outputs, k)
		}
	}
	return outputs
}

// splitLabel matches a "label: value" line against the known field names.
func splitLabel(line string, known map[string]string) (name, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	label := strings.ToLower(strings.TrimSpace(strings.Trim(line[:idx], "*# ")))
	canonical, found := known[label]
	if !found {
		return "", "", false
	}
	return canonical, strings.TrimSpace(line[idx+1:]), true
}

// truncatePrompt cuts the prompt to roughly the token budget. Token counting
// is an estimate, so a character-based cut against the 4-chars-per-token rule
// is close enough here.
func truncatePrompt(prompt string, budget int) string {
	maxChars := budget * 4
	if len(prompt) <= maxChars {
		return prompt
	}
	return prompt[:maxChars]
}
