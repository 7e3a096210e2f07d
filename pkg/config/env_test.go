package config

import (
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("GANGWAY_TEST_STR", "value")
	if got := GetEnv("GANGWAY_TEST_STR", "fallback"); got != "value" {
		t.Fatalf("expected value, got %s", got)
	}
	if got := GetEnv("GANGWAY_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %s", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("GANGWAY_TEST_INT", "42")
	if got := GetEnvInt("GANGWAY_TEST_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	t.Setenv("GANGWAY_TEST_INT", "not-a-number")
	if got := GetEnvInt("GANGWAY_TEST_INT", 7); got != 7 {
		t.Fatalf("expected default on parse failure, got %d", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("GANGWAY_TEST_BOOL", "true")
	if !GetEnvBool("GANGWAY_TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	if GetEnvBool("GANGWAY_TEST_BOOL_UNSET", false) {
		t.Fatal("expected default false")
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("GANGWAY_TEST_DUR", "90s")
	if got := GetEnvDuration("GANGWAY_TEST_DUR", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
	t.Setenv("GANGWAY_TEST_DUR", "garbage")
	if got := GetEnvDuration("GANGWAY_TEST_DUR", time.Minute); got != time.Minute {
		t.Fatalf("expected default on parse failure, got %s", got)
	}
}
