package plugins

import (
	"context"
	"errors"
	"regexp/syntax"
	"testing"

	"termibot/pkg/actions"
	"termibot/pkg/dependencies"
	"termibot/pkg/logger"
	"termibot/pkg/processor"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error"})
	if err != nil {
		t.Fatalf("create logger: %v", err)
	}
	return log
}

type testPlugin struct {
	Base
	name string
	subs []Subscription
}

func (p *testPlugin) Name() string { return p.name }

func (p *testPlugin) Subscriptions() []Subscription { return p.subs }

func (p *testPlugin) OnCommand(context.Context, processor.Command, *dependencies.Dependencies) []actions.Action {
	return []actions.Action{actions.MessageChannel{Channel: "C1", Message: p.name}}
}

func TestExactSubscription(t *testing.T) {
	sub := Exact("help")
	if !sub.Matches("help") {
		t.Fatal("expected help to match")
	}
	for _, cmd := range []string{"help2", "hel", "help me", "HELP"} {
		if sub.Matches(cmd) {
			t.Errorf("expected %q not to match", cmd)
		}
	}
}

func TestExactSubscriptionEscapesMetacharacters(t *testing.T) {
	sub := Exact("c++")
	if !sub.Matches("c++") {
		t.Fatal("expected c++ to match")
	}
	if sub.Matches("cc") {
		t.Fatal("expected metacharacters to be literal")
	}
}

func TestPrefixSubscription(t *testing.T) {
	sub := Prefix("deploy")
	for _, cmd := range []string{"deploy", "deploy-prod", "deployment"} {
		if !sub.Matches(cmd) {
			t.Errorf("expected %q to match", cmd)
		}
	}
	if sub.Matches("redeploy") {
		t.Error("expected redeploy not to match")
	}
}

func TestPatternSubscription(t *testing.T) {
	sub, err := Pattern(`^(status|health)$`)
	if err != nil {
		t.Fatalf("Pattern() error = %v", err)
	}
	if !sub.Matches("status") || !sub.Matches("health") {
		t.Fatal("expected alternatives to match")
	}
	if sub.Matches("statuses") {
		t.Fatal("expected anchored pattern to reject statuses")
	}

	unanchored, err := Pattern("log")
	if err != nil {
		t.Fatalf("Pattern() error = %v", err)
	}
	if !unanchored.Matches("showlogs") {
		t.Fatal("expected unanchored pattern to match anywhere")
	}
}

func TestPatternSubscriptionInvalid(t *testing.T) {
	_, err := Pattern("deploy(")
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}

	var patternErr *PatternError
	if !errors.As(err, &patternErr) {
		t.Fatalf("expected *PatternError, got %T", err)
	}
	if patternErr.Pattern != "deploy(" {
		t.Fatalf("Pattern = %q", patternErr.Pattern)
	}
	var syntaxErr *syntax.Error
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("expected wrapped *syntax.Error, got %v", patternErr.Err)
	}
}

func TestWithDescriptionDoesNotMutate(t *testing.T) {
	base := Exact("karma")
	described := base.WithDescription("show karma")

	if base.Description() != "" {
		t.Fatalf("base description = %q, want empty", base.Description())
	}
	if described.Description() != "show karma" {
		t.Fatalf("description = %q", described.Description())
	}
	if !described.Matches("karma") {
		t.Fatal("described subscription lost its match rule")
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry(newTestLogger(t))

	if err := r.Register(&testPlugin{name: "one", subs: Exacts("help")}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if r.Len() != 1 || len(r.All()) != 1 {
		t.Fatalf("Len() = %d, All() = %d, want 1", r.Len(), len(r.All()))
	}
}

func TestRegistryRegisterRejectsInvalid(t *testing.T) {
	r := NewRegistry(newTestLogger(t))

	if err := r.Register(nil); err == nil {
		t.Error("expected error for nil plugin")
	}
	if err := r.Register(&testPlugin{}); err == nil {
		t.Error("expected error for unnamed plugin")
	}
	if err := r.Register(&testPlugin{name: "zero", subs: []Subscription{{}}}); err == nil {
		t.Error("expected error for zero subscription")
	}
	if err := r.Register(&testPlugin{name: "dup"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(&testPlugin{name: "dup"}); err == nil {
		t.Error("expected error for duplicate name")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistryCapturesSubscriptionsOnce(t *testing.T) {
	r := NewRegistry(newTestLogger(t))
	p := &testPlugin{name: "mutable", subs: Exacts("help")}
	r.MustRegister(p)

	p.subs = Exacts("other")
	p.subs[0] = Exact("changed")

	if got := r.Match("help"); len(got) != 1 {
		t.Fatalf("Match(help) = %d plugins, want 1", len(got))
	}
	if got := r.Match("changed"); len(got) != 0 {
		t.Fatalf("Match(changed) = %d plugins, want 0", len(got))
	}
}

func TestRegistryMatch(t *testing.T) {
	r := NewRegistry(newTestLogger(t))
	pattern, err := Pattern("^dep")
	if err != nil {
		t.Fatal(err)
	}

	exact := &testPlugin{name: "exact", subs: Exacts("deploy")}
	prefix := &testPlugin{name: "prefix", subs: []Subscription{pattern}}
	silent := &testPlugin{name: "silent"}
	other := &testPlugin{name: "other", subs: Exacts("help")}
	for _, p := range []Plugin{exact, prefix, silent, other} {
		r.MustRegister(p)
	}

	got := r.Match("deploy")
	if len(got) != 2 {
		t.Fatalf("Match(deploy) = %d plugins, want 2", len(got))
	}
	names := map[string]bool{}
	for _, p := range got {
		names[p.Name()] = true
	}
	if !names["exact"] || !names["prefix"] {
		t.Fatalf("Match(deploy) = %v", names)
	}
	if names["silent"] {
		t.Fatal("plugin without subscriptions must never match")
	}

	if got := r.Match("nothing"); len(got) != 0 {
		t.Fatalf("Match(nothing) = %d plugins, want 0", len(got))
	}
	if got := r.All(); len(got) != 4 {
		t.Fatalf("All() = %d plugins, want 4", len(got))
	}
}

func TestRegistryInfo(t *testing.T) {
	r := NewRegistry(newTestLogger(t))
	r.MustRegister(&testPlugin{
		name: "helpful",
		subs: []Subscription{
			Exact("help").WithDescription("list commands"),
			Prefix("deploy"),
		},
	})
	r.MustRegister(&testPlugin{name: "silent"})

	infos := r.Info()
	if len(infos) != 2 {
		t.Fatalf("Info() = %d entries, want 2", len(infos))
	}

	helpful := infos[0]
	if helpful.Name != "helpful" || len(helpful.Subscriptions) != 2 {
		t.Fatalf("Info()[0] = %+v", helpful)
	}
	if helpful.Subscriptions[0].Pattern != "^help$" || helpful.Subscriptions[0].Description != "list commands" {
		t.Fatalf("Subscriptions[0] = %+v", helpful.Subscriptions[0])
	}
	if helpful.Subscriptions[1].Pattern != "^deploy" || helpful.Subscriptions[1].Description != "" {
		t.Fatalf("Subscriptions[1] = %+v", helpful.Subscriptions[1])
	}
	if len(infos[1].Subscriptions) != 0 {
		t.Fatalf("Info()[1] = %+v", infos[1])
	}
}

func TestBaseDefaults(t *testing.T) {
	var b Base
	if subs := b.Subscriptions(); len(subs) != 0 {
		t.Fatalf("Subscriptions() = %v", subs)
	}
	if acts := b.OnCommand(context.Background(), processor.Command{}, dependencies.Empty()); len(acts) != 0 {
		t.Fatalf("OnCommand() = %v", acts)
	}
	if acts := b.OnEvent(context.Background(), nil, dependencies.Empty()); len(acts) != 0 {
		t.Fatalf("OnEvent() = %v", acts)
	}
}
