package auth

import "testing"

func TestSingleKey(t *testing.T) {
	a := NewSingleKey("ops-key")
	if !a.IsResolver("ops-key") {
		t.Error("configured key should be the resolver")
	}
	if a.IsResolver("other") {
		t.Error("unknown identity must not be the resolver")
	}
	if a.IsResolver("") {
		t.Error("empty identity must not be the resolver")
	}
}

func TestSingleKey_EmptyConfigured(t *testing.T) {
	a := NewSingleKey("")
	if a.IsResolver("") {
		t.Error("empty configured key must never authorize")
	}
}
