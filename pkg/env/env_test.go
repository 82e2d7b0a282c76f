package env

import "testing"

func TestGetFallsBackOnBlank(t *testing.T) {
	t.Setenv("LEASEWISE_TEST_ENV_VALUE", "   ")
	if got := Get("LEASEWISE_TEST_ENV_VALUE", "json"); got != "json" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}

	t.Setenv("LEASEWISE_TEST_ENV_VALUE", " console ")
	if got := Get("LEASEWISE_TEST_ENV_VALUE", "json"); got != "console" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}
