package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrefersFileOverEnvAndValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write secret file: %v", err)
	}
	t.Setenv("FIT_JUDGE_TEST_SECRET", "from-env")

	got, err := Load(Source{Name: "api key", Value: "from-value", Env: "FIT_JUDGE_TEST_SECRET", File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected file secret, got %q", got)
	}
}

func TestLoadFallsBackToEnvThenValue(t *testing.T) {
	t.Setenv("FIT_JUDGE_TEST_SECRET", "from-env")

	got, err := Load(Source{Name: "api key", Value: "from-value", Env: "FIT_JUDGE_TEST_SECRET"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-env" {
		t.Fatalf("expected env secret, got %q", got)
	}

	t.Setenv("FIT_JUDGE_TEST_SECRET", "   ")
	got, err = Load(Source{Name: "api key", Value: "from-value", Env: "FIT_JUDGE_TEST_SECRET"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-value" {
		t.Fatalf("expected inline secret, got %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(Source{Name: "api key"}); err == nil || !strings.Contains(err.Error(), "api key is not configured") {
		t.Fatalf("expected not configured error, got %v", err)
	}

	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write secret file: %v", err)
	}
	if _, err := Load(Source{Name: "api key", File: empty}); err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}

	if _, err := Load(Source{File: filepath.Join(t.TempDir(), "missing")}); err == nil || !strings.Contains(err.Error(), "reading secret from file") {
		t.Fatalf("expected read error, got %v", err)
	}
}
