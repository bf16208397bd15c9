package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mCRL2org/ltsgraph/pkg/cache"
	"github.com/mCRL2org/ltsgraph/pkg/errors"
	"github.com/mCRL2org/ltsgraph/pkg/force"
	"github.com/mCRL2org/ltsgraph/pkg/graph"
	"github.com/mCRL2org/ltsgraph/pkg/layout"
)

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if s.Worker.Period() != 50*time.Millisecond {
		t.Errorf("period = %v", s.Worker.Period())
	}
	if s.Clip.Box() != layout.DefaultClip {
		t.Errorf("clip = %v", s.Clip.Box())
	}
}

func TestDecode(t *testing.T) {
	in := `
[layout]
attraction = "linear-springs"
repulsion = "electrical"
application = "force-directed"
natural_length = 80.0
accuracy = 1.2
tree = false
seed = 7

[clip]
min = [-100.0, -100.0, -50.0]
max = [100.0, 100.0, 50.0]

[worker]
period_ms = 20

[cache]
backend = "redis"
redis_addr = "cache:6379"
`
	s, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if s.Layout.Attraction != force.AttractionLinearSprings ||
		s.Layout.Repulsion != force.RepulsionElectrical ||
		s.Layout.Application != force.ApplicationForceDirected {
		t.Errorf("strategies = %v %v %v", s.Layout.Attraction, s.Layout.Repulsion, s.Layout.Application)
	}
	if s.Layout.NatLength != 80 || s.Layout.Accuracy != 1.2 || s.Layout.TreeEnabled || s.Layout.Seed != 7 {
		t.Errorf("layout = %+v", s.Layout)
	}
	if s.Layout.Speed != layout.DefaultSettings().Speed {
		t.Errorf("unset speed changed to %v", s.Layout.Speed)
	}
	if s.Clip.Max[2] != 50 || s.Worker.PeriodMS != 20 {
		t.Errorf("clip/worker = %+v %+v", s.Clip, s.Worker)
	}
	if s.Cache.Backend != "redis" || s.Cache.RedisAddr != "cache:6379" || s.Server.Addr != ":8080" {
		t.Errorf("cache/server = %+v %+v", s.Cache, s.Server)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"syntax", "[layout"},
		{"unknown strategy", "[layout]\nattraction = \"gravity\""},
		{"negative weight", "[layout]\nrepulsion_weight = -1.0"},
		{"negative theta", "[layout]\naccuracy = -0.5"},
		{"inverted clip", "[clip]\nmin = [10.0, 0.0, 0.0]\nmax = [-10.0, 10.0, 0.0]"},
		{"flat clip", "[clip]\nmin = [0.0, 0.0, 0.0]\nmax = [0.0, 10.0, 0.0]"},
		{"zero period", "[worker]\nperiod_ms = 0"},
		{"unknown backend", "[cache]\nbackend = \"memcached\""},
		{"unknown key", "[layout]\ngravity = 1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.in))
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("err = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	s := Default()
	s.Layout.NatLength = 65
	s.Layout.Repulsion = force.RepulsionNone

	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `repulsion = "none"`) {
		t.Errorf("strategy not encoded by name:\n%s", buf.String())
	}
	back, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if back != s {
		t.Errorf("round trip changed settings:\n%+v\n%+v", back, s)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	s, err := Load("")
	if err != nil {
		t.Fatalf("missing default file: %v", err)
	}
	if s != Default() {
		t.Error("missing default file did not give defaults")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing explicit file: %v", err)
	}

	path, _ := DefaultPath()
	os.MkdirAll(filepath.Dir(path), 0o755)
	os.WriteFile(path, []byte("[server]\naddr = \":9999\"\n"), 0o644)
	s, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if s.Server.Addr != ":9999" {
		t.Errorf("addr = %q", s.Server.Addr)
	}
}

func TestCacheOptions(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	s := Default()
	opts, err := s.Cache.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Backend != cache.BackendFile || opts.Dir != "/tmp/xdg-cache/ltsgraph" {
		t.Errorf("options = %+v", opts)
	}
	if s.Cache.TTL() != cache.TTLLayout {
		t.Errorf("ttl = %v", s.Cache.TTL())
	}
}

func TestApplyTo(t *testing.T) {
	s := Default()
	s.Layout.NatLength = 120
	s.Clip.Max = [3]float64{300, 300, 0}

	e := layout.New(graph.NewStore())
	if err := s.ApplyTo(e); err != nil {
		t.Fatal(err)
	}
	if e.NatLength() != 120 {
		t.Errorf("nat length = %v", e.NatLength())
	}
	if e.ClipRegion().Max.X != 300 {
		t.Errorf("clip = %v", e.ClipRegion())
	}
}
