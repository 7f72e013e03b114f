package capability

import (
	"fmt"
	"sync"

	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llm"
	"github.com/joshn8er2022/content-marketing-agent/pkg/logx"
	"github.com/joshn8er2022/content-marketing-agent/pkg/utils"
)

// Kind selects the prompting strategy of a constructed instance.
type Kind string

// Supported capability kinds.
const (
	KindDirect       Kind = "direct"        // single-shot prediction
	KindDeliberative Kind = "deliberative"  // chain-of-thought reasoning
	KindReactiveLoop Kind = "reactive-loop" // iterative reason-and-act
)

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindDirect, KindDeliberative, KindReactiveLoop:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown capability kind %q", s)
}

// Factory constructs capability instances and retains the named ones for
// later reuse. Construction errors propagate: an unresolvable descriptor or
// unknown kind is a configuration defect, not an operational failure.
type Factory struct {
	client  llm.LLMClient
	counter *utils.TokenCounter
	logger  *logx.Logger

	mu        sync.Mutex
	instances map[string]*Instance
}

// NewFactory creates a factory building instances over the given LLM client.
func NewFactory(client llm.LLMClient) *Factory {
	counter, err := utils.NewTokenCounter()
	if err != nil {
		// The counter degrades to a character estimate; keep going.
		counter = nil
	}
	return &Factory{
		client:    client,
		counter:   counter,
		logger:    logx.NewLogger("capability"),
		instances: make(map[string]*Instance),
	}
}

// Create resolves the descriptor, builds an instance of the given kind, and,
// when name is non-empty, stores it for later retrieval. The instance uses
// the factory's default LLM client.
func (f *Factory) Create(kind Kind, descriptor any, name string) (*Instance, error) {
	return f.CreateFor(kind, descriptor, name, nil)
}

// CreateFor is Create with an explicit LLM client, so hosts can bind
// different capability instances to different configured models. A nil
// client falls back to the factory default.
func (f *Factory) CreateFor(kind Kind, descriptor any, name string, client llm.LLMClient) (*Instance, error) {
	desc, err := f.resolveDescriptor(descriptor)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindDirect, KindDeliberative, KindReactiveLoop:
	default:
		return nil, fmt.Errorf("unknown capability kind %q", kind)
	}

	if client == nil {
		client = f.client
	}
	inst := &Instance{
		Descriptor: desc,
		Kind:       kind,
		client:     client,
		counter:    f.counter,
		logger:     f.logger,
	}

	if name != "" {
		f.mu.Lock()
		f.instances[name] = inst
		f.mu.Unlock()
		f.logger.Debug("created %s instance %q from descriptor %s", kind, name, desc.Name)
	}
	return inst, nil
}

// resolveDescriptor accepts a *Descriptor, a Descriptor, or a name string.
func (f *Factory) resolveDescriptor(descriptor any) (*Descriptor, error) {
	switch d := descriptor.(type) {
	case *Descriptor:
		return d, nil
	case Descriptor:
		return &d, nil
	case string:
		return Resolve(d)
	default:
		return nil, fmt.Errorf("descriptor must be a name or Descriptor, got %T", descriptor)
	}
}

// Get returns a previously created named instance.
func (f *Factory) Get(name string) (*Instance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.instances[name]
	return inst, ok
}

// InstanceNames lists the names of retained instances.
func (f *Factory) InstanceNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.instances))
	for name := range f.instances {
		names = append(names, name)
	}
	return names
}
