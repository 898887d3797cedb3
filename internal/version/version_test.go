package version

import "testing"

func TestString(t *testing.T) {
	origV, origC, origB := Version, Commit, BuildTime
	t.Cleanup(func() { Version, Commit, BuildTime = origV, origC, origB })

	Version, Commit, BuildTime = "dev", "unknown", "unknown"
	if got := String(); got != "market-pulse dev" {
		t.Errorf("String() = %q, want %q", got, "market-pulse dev")
	}

	Version, Commit, BuildTime = "1.2.0", "abc123", "2026-01-01T00:00:00Z"
	want := "market-pulse 1.2.0 (abc123) built 2026-01-01T00:00:00Z"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
