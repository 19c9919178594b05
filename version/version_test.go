package version

import (
	"strings"
	"testing"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBranch, origBuildTime := Version, Commit, Branch, BuildTime
	return func() {
		Version = origVersion
		Commit = origCommit
		Branch = origBranch
		BuildTime = origBuildTime
	}
}

func TestGetDefaults(t *testing.T) {
	defer saveAndRestore()()
	Version = "dev"
	Commit = ""
	Branch = ""
	BuildTime = ""

	info := Get()
	if info.Version != "dev" {
		t.Errorf("expected version 'dev', got %q", info.Version)
	}
	if info.Release {
		t.Error("dev should not be a release")
	}
}

func TestGetWithLdflags(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0"
	Commit = "abc1234"
	Branch = "main"
	BuildTime = "2024-01-15T10:30:00Z"

	info := Get()
	if info.Version != "1.0.0" {
		t.Errorf("expected '1.0.0', got %q", info.Version)
	}
	if !info.Release {
		t.Error("1.0.0 should be a release")
	}
	if info.Commit != "abc1234" {
		t.Errorf("expected 'abc1234', got %q", info.Commit)
	}
	if info.BuildDate.Year() != 2024 {
		t.Errorf("expected build year 2024, got %d", info.BuildDate.Year())
	}
}

func TestGetDirtyVersion(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0-dirty"

	if Get().Release {
		t.Error("dirty version should not be a release")
	}
}

func TestShortDev(t *testing.T) {
	defer saveAndRestore()()
	Version = "dev"
	Commit = ""
	Branch = ""
	BuildTime = ""

	if sv := Short(); !strings.Contains(sv, "dev") {
		t.Errorf("expected short version to contain 'dev', got %q", sv)
	}
}

func TestShortWithCommit(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0"
	Commit = "abc1234"
	Branch = ""
	BuildTime = "2024-01-01T00:00:00Z"

	if sv := Short(); !strings.HasPrefix(sv, "1.0.0-abc1234") {
		t.Errorf("expected '1.0.0-abc1234' prefix, got %q", sv)
	}
}

func TestFullBasic(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0"
	Commit = "abc1234"
	Branch = "main"
	BuildTime = "2024-01-15T10:30:00Z"

	fv := Full()
	if !strings.Contains(fv, "1.0.0") {
		t.Errorf("expected full version to contain '1.0.0', got %q", fv)
	}
	if !strings.Contains(fv, "abc1234") {
		t.Errorf("expected full version to contain commit, got %q", fv)
	}
	if strings.Contains(fv, "main") {
		t.Errorf("main branch should not appear, got %q", fv)
	}
	if !strings.Contains(fv, "built") {
		t.Errorf("expected full version to contain 'built', got %q", fv)
	}
}

func TestFullFeatureBranch(t *testing.T) {
	defer saveAndRestore()()
	Version = "1.0.0"
	Commit = "abc1234"
	Branch = "feature/offline-mode"
	BuildTime = "2024-01-15T10:30:00Z"

	if fv := Full(); !strings.Contains(fv, "feature/offline-mode") {
		t.Errorf("expected full version to contain feature branch, got %q", fv)
	}
}
