package cmd

import "testing"

func TestResolveConfigPathPrefersFlag(t *testing.T) {
	orig := cfgFile
	defer func() { cfgFile = orig }()

	cfgFile = "/tmp/explicit.json5"
	if got := resolveConfigPath(); got != "/tmp/explicit.json5" {
		t.Fatalf("resolveConfigPath() = %q, want explicit flag value", got)
	}
}

func TestResolveConfigPathFallsBackToEnv(t *testing.T) {
	orig := cfgFile
	cfgFile = ""
	defer func() { cfgFile = orig }()

	t.Setenv("BROWSERPILOT_CONFIG", "/etc/browserpilot/config.json5")
	if got := resolveConfigPath(); got != "/etc/browserpilot/config.json5" {
		t.Fatalf("resolveConfigPath() = %q, want env value", got)
	}
}

func TestResolveConfigPathDefaultsWhenUnset(t *testing.T) {
	orig := cfgFile
	cfgFile = ""
	defer func() { cfgFile = orig }()

	t.Setenv("BROWSERPILOT_CONFIG", "")
	if got := resolveConfigPath(); got != "config.json5" {
		t.Fatalf("resolveConfigPath() = %q, want default", got)
	}
}

func TestParsePort(t *testing.T) {
	if port, err := parsePort("9000"); err != nil || port != 9000 {
		t.Fatalf("parsePort(9000) = (%d, %v)", port, err)
	}
	if _, err := parsePort("not-a-port"); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
	if _, err := parsePort("-1"); err == nil {
		t.Fatal("expected error for negative port")
	}
}

func TestDirOf(t *testing.T) {
	if got := dirOf("/home/user/memory.db"); got != "/home/user" {
		t.Fatalf("dirOf = %q", got)
	}
	if got := dirOf("memory.db"); got != "." {
		t.Fatalf("dirOf = %q, want \".\"", got)
	}
}
