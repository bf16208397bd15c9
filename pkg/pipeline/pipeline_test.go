package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mCRL2org/ltsgraph/pkg/cache"
	"github.com/mCRL2org/ltsgraph/pkg/errors"
	"github.com/mCRL2org/ltsgraph/pkg/graph"
	"github.com/mCRL2org/ltsgraph/pkg/layout"
)

// memCache is an in-memory cache that counts operations.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	sets int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

var _ cache.Cache = (*memCache)(nil)

func model() *graph.Model {
	return &graph.Model{
		States: []string{"idle", "busy"},
		Transitions: []graph.Transition{
			{From: 0, To: 1, Label: "start"},
			{From: 1, To: 0, Label: "stop"},
		},
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"dot", false},
		{"json", false},
		{"pdf", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("ValidateFormat(%q) code = %s", tt.format, errors.GetCode(err))
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "dot"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}
	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{Model: model()}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Settings == nil || *opts.Settings != layout.DefaultSettings() {
		t.Errorf("Settings = %+v, want defaults", opts.Settings)
	}
	if opts.Clip != layout.DefaultClip {
		t.Errorf("Clip = %v, want default", opts.Clip)
	}
	if opts.Seed != layout.DefaultSeed || opts.MaxIterations != DefaultMaxIterations {
		t.Errorf("Seed, MaxIterations = %d, %d", opts.Seed, opts.MaxIterations)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG || opts.Scale != DefaultScale {
		t.Errorf("render defaults = %v, %v", opts.Formats, opts.Scale)
	}
	if opts.Logger == nil {
		t.Error("Logger not set")
	}
}

func TestValidateRejects(t *testing.T) {
	bad := layout.DefaultSettings()
	bad.Speed = -1

	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"no source", Options{}, errors.ErrCodeInvalidInput},
		{"bad settings", Options{Model: model(), Settings: &bad}, errors.ErrCodeInvalidConfig},
		{"inverted clip", Options{Model: model(), Clip: r3.Box{Min: r3.Vec{X: 1}, Max: r3.Vec{X: -1}}}, errors.ErrCodeInvalidConfig},
		{"bad format", Options{Model: model(), Formats: []string{"gif"}}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestExecuteCachesLayoutAndArtifacts(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	opts := Options{
		Model:         model(),
		MaxIterations: 3000,
		Formats:       []string{FormatDOT, FormatJSON},
		Labels:        true,
	}

	first, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.LayoutHit || first.CacheInfo.RenderHit {
		t.Errorf("first run hit the cache: %+v", first.CacheInfo)
	}
	if first.Stats.Iterations == 0 || first.Stats.States != 2 || first.Stats.Transitions != 2 {
		t.Errorf("stats = %+v", first.Stats)
	}
	if len(first.Layout.Nodes) != 2 || len(first.Layout.Handles) != 2 {
		t.Fatalf("layout shape = %d nodes, %d handles", len(first.Layout.Nodes), len(first.Layout.Handles))
	}
	if !strings.Contains(string(first.Artifacts[FormatDOT]), `label="start"`) {
		t.Errorf("dot artifact:\n%s", first.Artifacts[FormatDOT])
	}
	if c.sets != 3 {
		t.Errorf("cache sets = %d, want 3", c.sets)
	}

	second, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.LayoutHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run missed the cache: %+v", second.CacheInfo)
	}
	if second.Stats.Iterations != 0 {
		t.Errorf("cached run iterated %d times", second.Stats.Iterations)
	}
	if string(second.Artifacts[FormatJSON]) != string(first.Artifacts[FormatJSON]) {
		t.Error("cached layout differs")
	}
}

func TestLayoutKeyDependsOnSeed(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	m := *model()

	for _, seed := range []uint64{1, 2, 1} {
		if _, err := r.Layout(context.Background(), m, Options{Seed: seed, MaxIterations: 10}); err != nil {
			t.Fatal(err)
		}
	}
	if c.sets != 2 {
		t.Errorf("cache sets = %d, want 2", c.sets)
	}
}

func TestRefreshBypassesCache(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	m := *model()
	opts := Options{MaxIterations: 10}

	if _, err := r.Layout(context.Background(), m, opts); err != nil {
		t.Fatal(err)
	}
	opts.Refresh = true
	_, iterations, hit, err := r.LayoutWithCacheInfo(context.Background(), m, opts)
	if err != nil {
		t.Fatal(err)
	}
	if hit || iterations == 0 {
		t.Errorf("refresh: hit=%v iterations=%d", hit, iterations)
	}
}

func TestExecuteFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.aut")
	data := "des (0, 2, 2)\n(0, \"a\", 1)\n(1, \"b\", 0)\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), Options{
		Path: path, MaxIterations: 50, Formats: []string{FormatJSON},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Model.Transitions[1].Label != "b" {
		t.Errorf("model = %+v", res.Model)
	}
}

func TestExecuteErrors(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	invalid := &graph.Model{States: []string{"s"}, Transitions: []graph.Transition{{From: 0, To: 3}}}

	tests := []struct {
		name string
		ctx  context.Context
		opts Options
		code errors.Code
	}{
		{"missing file", context.Background(), Options{Path: filepath.Join(t.TempDir(), "none.aut")}, errors.ErrCodeFileNotFound},
		{"invalid model", context.Background(), Options{Model: invalid}, errors.ErrCodeInvalidModel},
		{"cancelled", cancelled, Options{Model: model()}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(nil, nil, nil).Execute(tt.ctx, tt.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.code != "" && !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRender(t *testing.T) {
	l, _, err := GenerateLayout(context.Background(), *model(), Options{MaxIterations: 5})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Render(context.Background(), l, Options{Formats: []string{FormatDOT, FormatSVG}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out[FormatDOT]), "digraph LTS") {
		t.Errorf("dot = %.40s", out[FormatDOT])
	}
	if !strings.Contains(string(out[FormatSVG]), "<svg") {
		t.Errorf("svg = %.80s", out[FormatSVG])
	}
}
