package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mCRL2org/ltsgraph/pkg/config"
)

func TestCacheDir(t *testing.T) {
	tests := []struct {
		name    string
		xdg     string
		cfg     func() config.Settings
		want    func(home string) string
		wantErr bool
	}{
		{
			name: "xdg cache home",
			xdg:  "/tmp/custom-cache",
			cfg:  config.Default,
			want: func(string) string { return filepath.Join("/tmp/custom-cache", appName) },
		},
		{
			name: "explicit dir",
			cfg: func() config.Settings {
				s := config.Default()
				s.Cache.Dir = "/var/cache/lts"
				return s
			},
			want: func(string) string { return "/var/cache/lts" },
		},
		{
			name: "home fallback",
			cfg:  config.Default,
			want: func(home string) string { return filepath.Join(home, ".cache", appName) },
		},
		{
			name: "redis has no directory",
			cfg: func() config.Settings {
				s := config.Default()
				s.Cache.Backend = "redis"
				return s
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CACHE_HOME", tt.xdg)
			home, _ := os.UserHomeDir()

			dir, err := cacheDir(tt.cfg())
			if (err != nil) != tt.wantErr {
				t.Fatalf("cacheDir() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if want := tt.want(home); dir != want {
				t.Errorf("cacheDir() = %q, want %q", dir, want)
			}
		})
	}
}

func TestCacheCommands(t *testing.T) {
	c := newTestCLI(t)

	out, err := run(t, c, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	dir := strings.TrimSpace(out)
	if !strings.HasSuffix(dir, appName) {
		t.Fatalf("cache path = %q", dir)
	}

	// Populate the cache, then clear it.
	if _, err := run(t, c, "layout", writeModel(t), "--max-iterations", "20"); err != nil {
		t.Fatal(err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) == 0 {
		t.Fatal("layout did not populate the cache")
	}
	if _, err := run(t, c, "cache", "clear"); err != nil {
		t.Fatal(err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("cache not empty after clear: %d entries", len(entries))
	}
}
