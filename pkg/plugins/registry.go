package plugins

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"termibot/pkg/logger"
)

type entry struct {
	plugin        Plugin
	subscriptions []Subscription
}

// Registry owns registered plugins in registration order. Registration is
// expected to finish before dispatch starts.
type Registry struct {
	log     *logger.Logger
	mu      sync.RWMutex
	entries []entry
	names   map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		log:   log,
		names: make(map[string]struct{}),
	}
}

// PluginInfo describes one registered plugin.
type PluginInfo struct {
	Name          string             `json:"name" yaml:"name"`
	Subscriptions []SubscriptionInfo `json:"subscriptions" yaml:"subscriptions"`
}

// SubscriptionInfo describes one subscription.
type SubscriptionInfo struct {
	Pattern     string `json:"pattern" yaml:"pattern"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Register captures the plugin's subscriptions and appends it.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("plugin cannot be nil")
	}

	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin name cannot be empty")
	}

	subs := p.Subscriptions()
	for i, s := range subs {
		if !s.valid() {
			return fmt.Errorf("plugin %s: subscription %d has no match rule", name, i)
		}
	}
	subs = append([]Subscription(nil), subs...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[name]; exists {
		return fmt.Errorf("plugin %s already registered", name)
	}
	r.names[name] = struct{}{}
	r.entries = append(r.entries, entry{plugin: p, subscriptions: subs})

	r.log.Debug("Registered plugin",
		zap.String("plugin", name),
		zap.Int("subscriptions", len(subs)),
	)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(p Plugin) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// All returns every registered plugin.
func (r *Registry) All() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Plugin, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.plugin)
	}
	return out
}

// Match returns the plugins with at least one subscription matching command.
// Plugins without subscriptions never match.
func (r *Registry) Match(command string) []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Plugin
	for _, e := range r.entries {
		for _, s := range e.subscriptions {
			if s.Matches(command) {
				out = append(out, e.plugin)
				break
			}
		}
	}
	return out
}

// Info describes every registered plugin and its subscriptions.
func (r *Registry) Info() []PluginInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]PluginInfo, 0, len(r.entries))
	for _, e := range r.entries {
		info := PluginInfo{
			Name:          e.plugin.Name(),
			Subscriptions: make([]SubscriptionInfo, 0, len(e.subscriptions)),
		}
		for _, s := range e.subscriptions {
			info.Subscriptions = append(info.Subscriptions, SubscriptionInfo{
				Pattern:     s.Pattern(),
				Description: s.Description(),
			})
		}
		infos = append(infos, info)
	}
	return infos
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
