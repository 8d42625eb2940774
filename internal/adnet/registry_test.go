package adnet

import (
	"testing"
)

func TestRegistry_OrderIsRegistrationOrder(t *testing.T) {
	reg, err := NewRegistry(
		NewMockAdapter("alpha", 1),
		NewMockAdapter("beta", 1),
		NewMockAdapter("gamma", 1),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := reg.Adapters()
	want := []string{"alpha", "beta", "gamma"}
	if len(got) != len(want) {
		t.Fatalf("expected %d adapters, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i].Platform() != name {
			t.Errorf("position %d: expected %s, got %s", i, name, got[i].Platform())
		}
	}
}

func TestRegistry_DuplicateNameRejected(t *testing.T) {
	reg, err := NewRegistry(NewMockAdapter("alpha", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := reg.Register(NewMockAdapter("ALPHA", 2)); err == nil {
		t.Fatal("expected duplicate registration to fail case-insensitively")
	}
}

func TestRegistry_LookupCaseInsensitive(t *testing.T) {
	reg, err := NewRegistry(NewMockAdapter("AdMob", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, ok := reg.Lookup("admob")
	if !ok {
		t.Fatal("expected lookup to succeed")
	}
	if a.Platform() != "AdMob" {
		t.Errorf("expected original name preserved, got %s", a.Platform())
	}
	if _, ok := reg.Lookup("unknown"); ok {
		t.Error("expected unknown lookup to fail")
	}
}

func TestRegistry_AdaptersReturnsCopy(t *testing.T) {
	reg, err := NewRegistry(NewMockAdapter("alpha", 1), NewMockAdapter("beta", 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := reg.Adapters()
	got[0] = got[1]
	if reg.Adapters()[0].Platform() != "alpha" {
		t.Error("mutating the returned slice must not affect the registry")
	}
}
