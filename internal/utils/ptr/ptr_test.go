package ptr

import "testing"

func TestTo(t *testing.T) {
	s := "tier"
	p := To(s)
	if p == nil {
		t.Fatal("Expected non-nil pointer")
	}
	if *p != s {
		t.Errorf("Expected %q, got %q", s, *p)
	}
	if p == &s {
		t.Error("Expected different address")
	}
}

func TestString(t *testing.T) {
	if got := *String("2024-06-01"); got != "2024-06-01" {
		t.Errorf("Expected 2024-06-01, got %q", got)
	}
}
