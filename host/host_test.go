package host

import (
	"errors"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/richinsley/goshaderfx/gfx"
	"github.com/richinsley/goshaderfx/gfx/soft"
)

// colorSource fills its size with a solid colour.
type colorSource struct {
	dev      *soft.Device
	w, h     uint32
	rgba     [4]float32
	ticks    int
	active   bool
	panicky  bool
	saved    bool
	settings *Settings
}

func (c *colorSource) Width() uint32  { return c.w }
func (c *colorSource) Height() uint32 { return c.h }
func (c *colorSource) Activate()      { c.active = true }
func (c *colorSource) Deactivate()    { c.active = false }

func (c *colorSource) Update(s *Settings) {
	c.w = uint32(s.Int("Test.Width"))
	c.h = uint32(s.Int("Test.Height"))
	c.settings = s
}

func (c *colorSource) Save(s *Settings) {
	c.saved = true
	s.SetBool("Test.Saved", true)
}

func (c *colorSource) VideoTick(seconds float64) { c.ticks++ }

func (c *colorSource) VideoRender(effect gfx.Effect) {
	if c.panicky {
		panic("render failed")
	}
	fx, err := c.dev.LoadEffectSource(soft.SolidProgramName, "")
	if err != nil {
		return
	}
	fx.Param("color").SetFloat4(c.rgba[0], c.rgba[1], c.rgba[2], c.rgba[3])
	fx.Loop("Draw", func() { c.dev.DrawSprite(c.w, c.h) })
}

// testFilter either skips itself or draws its target through effect.
type testFilter struct {
	self   *Source
	skip   bool
	effect gfx.Effect
}

func (f *testFilter) Width() uint32 {
	if t := f.self.FilterTarget(); t != nil {
		return t.BaseWidth()
	}
	return 0
}

func (f *testFilter) Height() uint32 {
	if t := f.self.FilterTarget(); t != nil {
		return t.BaseHeight()
	}
	return 0
}

func (f *testFilter) Update(*Settings)  {}
func (f *testFilter) Activate()         {}
func (f *testFilter) Deactivate()       {}
func (f *testFilter) VideoTick(float64) {}

func (f *testFilter) VideoRender(gfx.Effect) {
	if f.skip || !f.self.ProcessFilterBegin() {
		f.self.SkipVideoFilter()
		return
	}
	f.self.ProcessFilterEnd(f.effect, f.Width(), f.Height())
}

func newTestHost(t *testing.T) (*Host, *soft.Device) {
	t.Helper()
	dev := soft.New(64, 64)
	h := New(dev)
	err := h.Register(&Factory{
		ID:   "test-color",
		Kind: KindInput,
		Defaults: func(s *Settings) {
			s.SetDefaultInt("Test.Width", 8)
			s.SetDefaultInt("Test.Height", 4)
		},
		Create: func(h *Host, self *Source, s *Settings) (MediaSource, error) {
			c := &colorSource{dev: dev, rgba: [4]float32{1, 0, 0, 1}}
			c.Update(s)
			return c, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = h.Register(&Factory{
		ID:   "test-filter",
		Kind: KindFilter,
		Create: func(h *Host, self *Source, s *Settings) (MediaSource, error) {
			return &testFilter{self: self, skip: s.Bool("Test.Skip")}, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return h, dev
}

func TestCreateAppliesDefaults(t *testing.T) {
	h, _ := newTestHost(t)
	s := NewSettings()
	s.SetInt("Test.Width", 16)
	src, err := h.Create("test-color", "a", s)
	if err != nil {
		t.Fatal(err)
	}
	if src.Width() != 16 || src.Height() != 4 {
		t.Errorf("size %dx%d, want 16x4", src.Width(), src.Height())
	}
	if _, err := h.Create("test-color", "a", nil); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate create returned %v", err)
	}
	if _, err := h.Create("nope", "b", nil); !errors.Is(err, ErrUnknownFactory) {
		t.Errorf("unknown factory returned %v", err)
	}
}

func TestRenameAndRemove(t *testing.T) {
	h, _ := newTestHost(t)
	src, _ := h.Create("test-color", "a", nil)
	h.Create("test-color", "b", nil)

	var renamed RenameEvent
	src.Renamed.Add(func(ev RenameEvent) { renamed = ev })
	if err := h.Rename("a", "b"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("rename onto existing name returned %v", err)
	}
	if err := h.Rename("a", "c"); err != nil {
		t.Fatal(err)
	}
	if renamed.OldName != "a" || renamed.NewName != "c" || src.Name() != "c" {
		t.Errorf("rename event %+v, name %q", renamed, src.Name())
	}
	if h.Source("a") != nil || h.Source("c") != src {
		t.Error("registry not updated by rename")
	}

	var order []string
	src.Removed.Add(func(*Source) { order = append(order, "removed") })
	src.Destroyed.Add(func(*Source) { order = append(order, "destroyed") })
	if err := h.Remove("c"); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "removed" || order[1] != "destroyed" {
		t.Errorf("events %v", order)
	}
	if h.Source("c") != nil || !src.IsDestroyed() || src.Width() != 0 {
		t.Error("removed source still reachable")
	}
	if err := h.Remove("c"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("second remove returned %v", err)
	}
}

func TestFilterChain(t *testing.T) {
	h, dev := newTestHost(t)
	src, _ := h.Create("test-color", "a", nil)
	f1, _ := h.Create("test-filter", "f1", nil)
	skip := NewSettings()
	skip.SetBool("Test.Skip", true)
	f2, _ := h.Create("test-filter", "f2", skip)

	if err := src.AddFilter(f1); err != nil {
		t.Fatal(err)
	}
	if err := src.AddFilter(f2); err != nil {
		t.Fatal(err)
	}
	if err := src.AddFilter(f1); err == nil {
		t.Error("filter attached twice")
	}
	if err := src.AddFilter(src); err == nil {
		t.Error("input attached as a filter")
	}
	if f1.FilterTarget() != src || f2.FilterTarget() != f1 {
		t.Error("wrong filter targets")
	}
	if src.Width() != 8 || src.Height() != 4 {
		t.Errorf("chain size %dx%d", src.Width(), src.Height())
	}

	src.Render()
	if got := dev.Backbuffer().RGBAAt(1, 1); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("pixel %v, want red through the chain", got)
	}
	if got := dev.Backbuffer().RGBAAt(20, 20); got.A != 0 {
		t.Errorf("drew outside the source: %v", got)
	}

	src.RemoveFilter(f2)
	if len(src.Filters()) != 1 || f2.FilterParent() != nil {
		t.Error("filter not detached")
	}
}

func TestProcessFilterEndWithEffect(t *testing.T) {
	h, dev := newTestHost(t)
	src, _ := h.Create("test-color", "a", nil)
	f, _ := h.Create("test-filter", "f", nil)
	src.AddFilter(f)

	fx, err := dev.LoadEffectSource("copy", "")
	if err == nil {
		t.Fatal("unregistered program loaded")
	}
	dev.Register("copy", soft.EffectSpec{
		Params: []gfx.ParamSpec{{Name: "image", Type: gfx.ParamTexture}},
		Techniques: map[string][]soft.PixelFunc{
			"Draw": {func(in soft.PixelInput) color.RGBA {
				c := in.Effect.Sample("image", in.U, in.V)
				return color.RGBA{R: c.G, G: c.R, B: c.B, A: c.A}
			}},
		},
	})
	fx, err = dev.LoadEffectSource("copy", "")
	if err != nil {
		t.Fatal(err)
	}
	f.Impl().(*testFilter).effect = fx

	before := dev.Stats().ScopesOpened
	src.Render()
	if dev.Stats().ScopesOpened != before+1 {
		t.Error("effect draw did not capture the target")
	}
	if got := dev.Backbuffer().RGBAAt(2, 2); got != (color.RGBA{0, 255, 0, 255}) {
		t.Errorf("pixel %v, want the effect's green", got)
	}
}

func TestRenderPanicIsContained(t *testing.T) {
	h, _ := newTestHost(t)
	src, _ := h.Create("test-color", "a", nil)
	src.Impl().(*colorSource).panicky = true
	src.Render()
	src.Render()
}

func TestActivateNestsAndReachesFilters(t *testing.T) {
	h, _ := newTestHost(t)
	src, _ := h.Create("test-color", "a", nil)
	c := src.Impl().(*colorSource)
	src.Activate()
	src.Activate()
	src.Deactivate()
	if !c.active || !src.Active() {
		t.Error("nested deactivate switched the source off")
	}
	f, _ := h.Create("test-filter", "f", nil)
	src.AddFilter(f)
	if !f.Active() {
		t.Error("filter added to an active source is inactive")
	}
	src.Deactivate()
	if c.active || f.Active() {
		t.Error("source still active")
	}
}

func TestTickReachesFilters(t *testing.T) {
	h, _ := newTestHost(t)
	src, _ := h.Create("test-color", "a", nil)
	h.Tick(1.0 / 60)
	h.Tick(1.0 / 60)
	if n := src.Impl().(*colorSource).ticks; n != 2 {
		t.Errorf("ticked %d times", n)
	}
}

func TestSceneRoundTrip(t *testing.T) {
	h, _ := newTestHost(t)
	sc := &Scene{
		Output: "a",
		Sources: []SceneSource{{
			ID:       "test-color",
			Name:     "a",
			Settings: map[string]any{"Test.Width": int64(32)},
			Filters:  []SceneSource{{ID: "test-filter", Name: "f"}},
		}},
	}
	out, err := h.Build(sc)
	if err != nil {
		t.Fatal(err)
	}
	if out.Name() != "a" || out.Width() != 32 || len(out.Filters()) != 1 {
		t.Fatalf("built %v", out)
	}

	path := filepath.Join(t.TempDir(), "scene.toml")
	if err := h.Snapshot("a").Save(path); err != nil {
		t.Fatal(err)
	}
	if !out.Impl().(*colorSource).saved {
		t.Error("snapshot did not save the source")
	}
	loaded, err := LoadScene(path)
	if err != nil {
		t.Fatal(err)
	}
	h2, _ := newTestHost(t)
	out2, err := h2.Build(loaded)
	if err != nil {
		t.Fatal(err)
	}
	if out2.Width() != 32 || !out2.Settings().Bool("Test.Saved") || len(out2.Filters()) != 1 {
		t.Errorf("scene did not round trip: %+v", loaded)
	}
}

func TestShutdownDestroysAll(t *testing.T) {
	h, _ := newTestHost(t)
	a, _ := h.Create("test-color", "a", nil)
	b, _ := h.Create("test-color", "b", nil)
	var order []string
	a.Destroyed.Add(func(s *Source) { order = append(order, s.Name()) })
	b.Destroyed.Add(func(s *Source) { order = append(order, s.Name()) })
	h.Shutdown()
	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Errorf("destroy order %v", order)
	}
	if len(h.Sources()) != 0 {
		t.Error("sources left after shutdown")
	}
}
