package config

import (
	"testing"
	"time"
)

func TestString(t *testing.T) {
	t.Setenv("CFG_TEST_STRING", "value")
	if got := String("CFG_TEST_STRING", "fallback"); got != "value" {
		t.Fatalf("expected set value, got %q", got)
	}
	if got := String("CFG_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestRequiredString(t *testing.T) {
	t.Setenv("CFG_TEST_REQUIRED", "whsec_123")
	got, err := RequiredString("CFG_TEST_REQUIRED")
	if err != nil || got != "whsec_123" {
		t.Fatalf("expected value, got %q err=%v", got, err)
	}
	if _, err := RequiredString("CFG_TEST_REQUIRED_UNSET"); err == nil {
		t.Fatal("expected error for unset required variable")
	}
}

func TestInt(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "42")
	if got := Int("CFG_TEST_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("CFG_TEST_INT_BAD", "not-a-number")
	if got := Int("CFG_TEST_INT_BAD", 7); got != 7 {
		t.Fatalf("expected fallback for garbage, got %d", got)
	}
}

func TestSeconds(t *testing.T) {
	t.Setenv("CFG_TEST_SECONDS", "30")
	if got := Seconds("CFG_TEST_SECONDS", time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s, got %s", got)
	}
	t.Setenv("CFG_TEST_SECONDS_NEG", "-5")
	if got := Seconds("CFG_TEST_SECONDS_NEG", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for negative value, got %s", got)
	}
}

func TestPort(t *testing.T) {
	t.Setenv("CFG_TEST_PORT", "8080")
	got, err := Port("CFG_TEST_PORT", "9090")
	if err != nil || got != "8080" {
		t.Fatalf("expected 8080, got %q err=%v", got, err)
	}
	t.Setenv("CFG_TEST_PORT_BAD", "70000")
	if _, err := Port("CFG_TEST_PORT_BAD", "9090"); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}
