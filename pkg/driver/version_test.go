package driver

import "testing"

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.0.0", 1},
		{"1.2.0", "1.2.0", 0},
		{"1.9.0", "1.10.0", -1},
		{"1.0.0-alpha", "1.0.0", -1},
	}
	for _, c := range cases {
		got := compareVersions(c.a, c.b)
		if sign(got) != c.want {
			t.Errorf("compareVersions(%q, %q) = %d, want sign %d", c.a, c.b, got, c.want)
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func TestShouldCleanupCurrentVersion(t *testing.T) {
	cfg := &Config{CurrentVersion: "2.0.0"}
	remove, err := shouldCleanup(cfg, "1.0.0", "2.0.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !remove {
		t.Errorf("expected removal when remove_in <= current version")
	}

	cfgOlder := &Config{CurrentVersion: "1.9.0"}
	remove, err = shouldCleanup(cfgOlder, "1.0.0", "2.0.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remove {
		t.Errorf("expected no removal when remove_in > current version")
	}
}

func TestShouldCleanupBefore(t *testing.T) {
	cfg := &Config{Before: "1.5.0"}
	remove, _ := shouldCleanup(cfg, "1.0.0", "2.0.0")
	if !remove {
		t.Errorf("expected removal when since < before boundary")
	}

	remove, _ = shouldCleanup(cfg, "2.0.0", "3.0.0")
	if remove {
		t.Errorf("expected no removal when since >= before boundary")
	}
}

func TestShouldCleanupAll(t *testing.T) {
	cfg := &Config{All: true}
	remove, err := shouldCleanup(cfg, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !remove {
		t.Errorf("expected --all to remove unconditionally")
	}
}
