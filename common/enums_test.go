package common

import (
	"errors"
	"testing"
)

func TestParseScope(t *testing.T) {
	for _, name := range ScopeNames() {
		s, err := ParseScope(name)
		if err != nil {
			t.Fatalf("ParseScope(%q) error = %v", name, err)
		}
		if s.String() != name {
			t.Errorf("round trip of %q gave %q", name, s)
		}
	}
	if _, err := ParseScope("sideways"); !errors.Is(err, ErrInvalidScope) {
		t.Errorf("ParseScope(sideways) error = %v, want ErrInvalidScope", err)
	}
}

func TestScope_IsLocal(t *testing.T) {
	if ScopeGlobal.IsLocal() || !ScopeLocal.IsLocal() {
		t.Error("IsLocal() is wrong")
	}
	if Scope(7).IsValid() {
		t.Error("Scope(7) should not be valid")
	}
}

func TestConvention_Text(t *testing.T) {
	text, err := ConventionWrapper.MarshalText()
	if err != nil || string(text) != "wrapper" {
		t.Fatalf("MarshalText() = %q, %v", text, err)
	}
	var c Convention
	if err := c.UnmarshalText([]byte("affix")); err != nil || c != ConventionAffix {
		t.Errorf("UnmarshalText(affix) = %v, %v", c, err)
	}
	if err := c.UnmarshalText([]byte("prefix")); !errors.Is(err, ErrInvalidConvention) {
		t.Errorf("UnmarshalText(prefix) error = %v", err)
	}
}
