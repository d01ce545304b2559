package plugin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/decklive/decklive-bridge/internal/plugin"
)

// stubPlugin is a minimal contract implementation for registry tests.
type stubPlugin struct {
	info   plugin.Info
	events chan plugin.Event
}

func newStub(id string) *stubPlugin {
	return &stubPlugin{
		info:   plugin.Info{ID: id, Name: id},
		events: make(chan plugin.Event),
	}
}

func (s *stubPlugin) Info() plugin.Info                 { return s.info }
func (s *stubPlugin) Capabilities() plugin.Capabilities { return plugin.Capabilities{PlayState: true} }
func (s *stubPlugin) ConfigOptions() []plugin.ConfigOption {
	return []plugin.ConfigOption{{Key: "host", Label: "Host", Type: plugin.OptionString, Default: "localhost"}}
}
func (s *stubPlugin) Events() <-chan plugin.Event                 { return s.events }
func (s *stubPlugin) Start(context.Context, map[string]any) error { return nil }
func (s *stubPlugin) Stop() error                                 { return nil }

func TestRegisterDuplicateFails(t *testing.T) {
	r := plugin.NewRegistry()

	if err := r.Register("stub", func() plugin.Plugin { return newStub("stub") }); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	err := r.Register("stub", func() plugin.Plugin { return newStub("other") })
	if !errors.Is(err, plugin.ErrDuplicatePlugin) {
		t.Fatalf("expected ErrDuplicatePlugin, got %v", err)
	}

	// First registration wins
	p, err := r.New("stub")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if p.Info().Name != "stub" {
		t.Errorf("expected original factory to survive, got %q", p.Info().Name)
	}
}

func TestNewReturnsFreshInstancePerCall(t *testing.T) {
	r := plugin.NewRegistry()
	calls := 0
	if err := r.Register("stub", func() plugin.Plugin {
		calls++
		return newStub("stub")
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	a, err := r.New("stub")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	b, err := r.New("stub")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if calls != 2 {
		t.Errorf("expected factory invoked per call, got %d invocations", calls)
	}
	if a == b {
		t.Error("expected distinct instances")
	}
}

func TestNewUnknownID(t *testing.T) {
	r := plugin.NewRegistry()
	if _, err := r.New("missing"); !errors.Is(err, plugin.ErrUnknownPlugin) {
		t.Fatalf("expected ErrUnknownPlugin, got %v", err)
	}
}

func TestListMetaSortedAndComplete(t *testing.T) {
	r := plugin.NewRegistry()
	for _, id := range []string{"zulu", "alpha", "mike"} {
		id := id
		if err := r.Register(id, func() plugin.Plugin { return newStub(id) }); err != nil {
			t.Fatalf("Register(%s) failed: %v", id, err)
		}
	}

	metas := r.ListMeta()
	if len(metas) != 3 {
		t.Fatalf("expected 3 metas, got %d", len(metas))
	}

	want := []string{"alpha", "mike", "zulu"}
	for i, m := range metas {
		if m.Info.ID != want[i] {
			t.Errorf("meta %d: expected id %q, got %q", i, want[i], m.Info.ID)
		}
		if !m.Capabilities.PlayState {
			t.Errorf("meta %d: capabilities not carried over", i)
		}
		if len(m.ConfigOptions) != 1 || m.ConfigOptions[0].Key != "host" {
			t.Errorf("meta %d: config options not carried over", i)
		}
	}
}

func TestClearEmptiesRegistry(t *testing.T) {
	r := plugin.NewRegistry()
	if err := r.Register("stub", func() plugin.Plugin { return newStub("stub") }); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	r.Clear()

	if ids := r.IDs(); len(ids) != 0 {
		t.Errorf("expected empty registry after Clear, got %v", ids)
	}
	if err := r.Register("stub", func() plugin.Plugin { return newStub("stub") }); err != nil {
		t.Errorf("expected re-registration after Clear to succeed, got %v", err)
	}
}
