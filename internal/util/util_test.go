package util

import (
	"strings"
	"testing"
)

func TestQuoteReferenceRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		ref := QuoteReference()
		if ref < 10000 || ref > 99999 {
			t.Fatalf("QuoteReference() = %d, want five digits", ref)
		}
	}
}

func TestFillQuoteReference(t *testing.T) {
	out := FillQuoteReference("Reference #REQ-{random_id}.")
	if strings.Contains(out, "{random_id}") {
		t.Errorf("placeholder not replaced: %q", out)
	}
	if !strings.HasPrefix(out, "Reference #REQ-") {
		t.Errorf("unexpected output: %q", out)
	}

	plain := "No placeholder here."
	if got := FillQuoteReference(plain); got != plain {
		t.Errorf("FillQuoteReference(%q) = %q", plain, got)
	}
}

func TestParseBoolEnv(t *testing.T) {
	t.Setenv("QF_TEST_BOOL", "true")
	if !ParseBoolEnv("QF_TEST_BOOL", false) {
		t.Error("expected true")
	}
	t.Setenv("QF_TEST_BOOL", "nonsense")
	if !ParseBoolEnv("QF_TEST_BOOL", true) {
		t.Error("malformed value should fall back to default")
	}
	t.Setenv("QF_TEST_BOOL", "")
	if ParseBoolEnv("QF_TEST_BOOL", false) {
		t.Error("unset value should fall back to default")
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("QF_TEST_STR", "")
	if got := GetEnvOrDefault("QF_TEST_STR", "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
	t.Setenv("QF_TEST_STR", "set")
	if got := GetEnvOrDefault("QF_TEST_STR", "fallback"); got != "set" {
		t.Errorf("got %q", got)
	}
}
