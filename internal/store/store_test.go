package store

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// newHome initializes a BEODATA_HOME under a temp dir.
func newHome(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), ".beodata")
	if err := Init(home, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return home
}

func TestInit(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".beodata")

	if err := Init(home, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// Verify structure
	for _, d := range []string{"cache", "assets", "exports"} {
		p := filepath.Join(home, d)
		info, err := os.Stat(p)
		if err != nil {
			t.Errorf("expected directory %s to exist", d)
		} else if !info.IsDir() {
			t.Errorf("expected %s to be a directory", d)
		}
	}

	if _, err := os.Stat(filepath.Join(home, "config.yaml")); err != nil {
		t.Error("expected config.yaml to exist")
	}

	// Second init should fail without force
	if err := Init(home, false); err == nil {
		t.Error("expected error on duplicate init")
	}

	if err := Init(home, true); err != nil {
		t.Errorf("expected force init to succeed: %v", err)
	}
}

func TestLoad(t *testing.T) {
	home := newHome(t)

	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Home != home {
		t.Errorf("expected Home=%s, got %s", home, s.Home)
	}
}

func TestPathAndResolve(t *testing.T) {
	s := &Store{Home: "/tmp/.beodata"}
	if got, want := s.Path("cache", "ab"), filepath.Join("/tmp/.beodata", "cache", "ab"); got != want {
		t.Errorf("Path() = %s, want %s", got, want)
	}
	if got, want := s.Resolve("assets/oe_bt.csv"), filepath.Join("/tmp/.beodata", "assets", "oe_bt.csv"); got != want {
		t.Errorf("Resolve(relative) = %s, want %s", got, want)
	}
	if got := s.Resolve("/srv/oe_bt.csv"); got != "/srv/oe_bt.csv" {
		t.Errorf("Resolve(absolute) = %s", got)
	}
	if got := s.Resolve(""); got != "" {
		t.Errorf("Resolve(empty) = %q", got)
	}
}

func TestCheckHealth(t *testing.T) {
	home := newHome(t)

	// Fresh home: assets are not yet copied in, only warnings expected
	for _, issue := range CheckHealth(home) {
		if issue.Severity != "warning" {
			t.Errorf("unexpected error on fresh home: %v", issue)
		}
	}

	for _, name := range []string{"brunetti-length.txt", "oe_bt.csv", "bt_abbreviations.xml"} {
		os.WriteFile(filepath.Join(home, "assets", name), []byte("x"), 0644)
	}
	if issues := CheckHealth(home); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}

	os.RemoveAll(filepath.Join(home, "cache"))
	if issues := CheckHealth(home); len(issues) == 0 {
		t.Error("expected issues after removing cache dir")
	}
}

func TestHomeEnvVar(t *testing.T) {
	t.Setenv("BEODATA_HOME", "/custom/path")
	if got := Home(); got != "/custom/path" {
		t.Errorf("Home() = %s, want /custom/path", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Sources.HeorotURL != "https://heorot.dk/beowulf-rede-text.html" {
		t.Errorf("unexpected default heorot url %s", cfg.Sources.HeorotURL)
	}
	if cfg.Export.SecondsPerLine != 4 {
		t.Errorf("expected 4 seconds per line, got %d", cfg.Export.SecondsPerLine)
	}
	if cfg.Summary.SampleSize != 5 {
		t.Errorf("expected sample size 5, got %d", cfg.Summary.SampleSize)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	home := newHome(t)

	os.WriteFile(filepath.Join(home, "config.yaml"), []byte("version: \"1\"\nserve:\n  addr: \":9000\"\n"), 0644)

	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Config.Serve.Addr != ":9000" {
		t.Errorf("file value lost, got %s", s.Config.Serve.Addr)
	}
	if s.Config.Sources.TokensPath != filepath.Join("assets", "brunetti-length.txt") {
		t.Errorf("expected default tokens path, got %s", s.Config.Sources.TokensPath)
	}
	if s.Config.Export.SecondsPerLine != 4 {
		t.Errorf("expected default seconds_per_line, got %d", s.Config.Export.SecondsPerLine)
	}
}

func TestSetConfigValue(t *testing.T) {
	s, err := Load(newHome(t))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SetConfigValue("serve.allowed_origins", "https://a.example, https://b.example"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetConfigValue("export.seconds_per_line", "6"); err != nil {
		t.Fatal(err)
	}

	// Reload and verify persistence
	s2, _ := Load(s.Home)
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(s2.Config.Serve.AllowedOrigins, want) {
		t.Errorf("origins not persisted, got %v", s2.Config.Serve.AllowedOrigins)
	}
	if got, _ := s2.ConfigValue("export.seconds_per_line"); got != "6" {
		t.Errorf("ConfigValue(export.seconds_per_line) = %s", got)
	}
	if got, _ := s2.ConfigValue("serve.allowed_origins"); got != strings.Join(want, ",") {
		t.Errorf("ConfigValue(serve.allowed_origins) = %s", got)
	}
}

func TestSetConfigValue_Invalid(t *testing.T) {
	s, err := Load(newHome(t))
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string]string{
		"nonexistent.key":         "value",
		"export.seconds_per_line": "0",
		"summary.sample_size":     "many",
		"serve.addr":              "localhost",
		"sources.heorot_url":      "ftp://heorot.dk",
	}
	for key, value := range cases {
		if err := s.SetConfigValue(key, value); err == nil {
			t.Errorf("expected error for %s=%s", key, value)
		}
	}
	if _, err := s.ConfigValue("nonexistent.key"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestFixIssues(t *testing.T) {
	home := newHome(t)

	os.RemoveAll(filepath.Join(home, "exports"))
	os.Remove(filepath.Join(home, "config.yaml"))

	fixed := FixIssues(home)
	if len(fixed) != 2 {
		t.Errorf("expected two fixes, got %v", fixed)
	}
	if _, err := os.Stat(filepath.Join(home, "exports")); err != nil {
		t.Error("exports dir not recreated")
	}
	if _, err := Load(home); err != nil {
		t.Errorf("config not recreated: %v", err)
	}
}

func TestAllowedOriginsEmptySurvivesReload(t *testing.T) {
	s, err := Load(newHome(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetConfigValue("serve.allowed_origins", ""); err != nil {
		t.Fatal(err)
	}

	s2, err := Load(s.Home)
	if err != nil {
		t.Fatal(err)
	}
	if len(s2.Config.Serve.AllowedOrigins) != 0 {
		t.Errorf("empty origin list reverted to %v", s2.Config.Serve.AllowedOrigins)
	}
}
