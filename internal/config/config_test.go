package config

import (
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"testing"
	"time"
)

func TestResolveDefaultDest(t *testing.T) {
	cfg := &BuildConfig{}
	if err := cfg.Resolve(time.Now()); err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	if cfg.Dest != DefaultDest {
		t.Errorf("Dest = %v, want %v", cfg.Dest, DefaultDest)
	}
}

func TestResolveKeepsExplicitDest(t *testing.T) {
	cfg := &BuildConfig{Dest: "/opt/tools"}
	if err := cfg.Resolve(time.Now()); err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	if cfg.Dest != "/opt/tools" {
		t.Errorf("Dest = %v, want /opt/tools", cfg.Dest)
	}
}

func TestResolvePackageFileWinsOverList(t *testing.T) {
	tests := []struct {
		name     string
		packages []string
		file     string
	}{
		{"both given", []string{"curl", "vim"}, "/tmp/pkglist.txt"},
		{"single package with file", []string{"curl"}, "pkgs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &BuildConfig{Packages: tt.packages, PackageFile: tt.file}
			if err := cfg.Resolve(time.Now()); err != nil {
				t.Fatalf("Resolve() failed: %v", err)
			}

			if cfg.PackageFile != tt.file {
				t.Errorf("PackageFile = %v, want %v", cfg.PackageFile, tt.file)
			}
			if cfg.Packages != nil {
				t.Errorf("Packages = %v, want nil (file takes precedence)", cfg.Packages)
			}
		})
	}
}

func TestResolveDefaultOutputPattern(t *testing.T) {
	cfg := &BuildConfig{}
	if err := cfg.Resolve(time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC)); err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	pattern := regexp.MustCompile(`^/tmp/custom-image-\d{12}\.iso$`)
	if !pattern.MatchString(cfg.OutputISO) {
		t.Errorf("OutputISO = %v, want match for %v", cfg.OutputISO, pattern)
	}

	if cfg.OutputISO != "/tmp/custom-image-202608301405.iso" {
		t.Errorf("OutputISO = %v, want /tmp/custom-image-202608301405.iso", cfg.OutputISO)
	}
}

func TestWantsPackages(t *testing.T) {
	tests := []struct {
		name string
		cfg  BuildConfig
		want bool
	}{
		{"nothing requested", BuildConfig{}, false},
		{"package list", BuildConfig{Packages: []string{"curl"}}, true},
		{"package file", BuildConfig{PackageFile: "pkgs.txt"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.WantsPackages(); got != tt.want {
				t.Errorf("WantsPackages() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePackageList(t *testing.T) {
	tests := []struct {
		name string
		list string
		want []string
	}{
		{"two packages", "curl vim", []string{"curl", "vim"}},
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"quoted name", `curl "weird pkg"`, []string{"curl", "weird pkg"}},
		{"version pin", "bar=1.2", []string{"bar=1.2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePackageList(tt.list)
			if err != nil {
				t.Fatalf("ParsePackageList(%q) failed: %v", tt.list, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePackageList(%q) = %v, want %v", tt.list, got, tt.want)
			}
		})
	}
}

func TestParsePackageListUnbalancedQuote(t *testing.T) {
	if _, err := ParsePackageList(`curl "vim`); err == nil {
		t.Error("ParsePackageList() error = nil, want error for unbalanced quote")
	}
}

func TestReadPackageFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "pkglist.txt")

	content := "foo\nbar=1.2\n\n# a comment\nbaz\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	got, err := ReadPackageFile(path)
	if err != nil {
		t.Fatalf("ReadPackageFile() failed: %v", err)
	}

	want := []string{"foo", "bar=1.2", "baz"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadPackageFile() = %v, want %v", got, want)
	}
}

func TestReadPackageFileMissing(t *testing.T) {
	if _, err := ReadPackageFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("ReadPackageFile() error = nil, want error for missing file")
	}
}
