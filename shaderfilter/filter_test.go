package shaderfilter

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/richinsley/goshaderfx/effect"
	"github.com/richinsley/goshaderfx/gfx"
	"github.com/richinsley/goshaderfx/gfx/soft"
	"github.com/richinsley/goshaderfx/host"
)

// block is a solid red input of a fixed size.
type block struct {
	dev  *soft.Device
	w, h uint32
}

func (b *block) Width() uint32          { return b.w }
func (b *block) Height() uint32         { return b.h }
func (b *block) Update(*host.Settings)  {}
func (b *block) Activate()              {}
func (b *block) Deactivate()            {}
func (b *block) VideoTick(float64)      {}
func (b *block) VideoRender(gfx.Effect) { b.draw() }

func (b *block) draw() {
	fx, _ := b.dev.LoadEffectSource(soft.SolidProgramName, "")
	fx.Param("color").SetFloat4(1, 0, 0, 1)
	fx.Loop("Draw", func() { b.dev.DrawSprite(b.w, b.h) })
}

// passProgram copies ImageSource and records the image size it was bound with.
func passProgram() soft.EffectSpec {
	return soft.EffectSpec{
		Params: []gfx.ParamSpec{
			{Name: effect.ImageSource, Type: gfx.ParamTexture},
			{Name: effect.ImageSourceSize, Type: gfx.ParamFloat2},
			{Name: effect.ImageTargetSize, Type: gfx.ParamFloat2},
			{Name: effect.ImageTargetTexel, Type: gfx.ParamFloat2},
			{Name: "Amount", Type: gfx.ParamFloat, Floats: []float32{1}},
		},
		Techniques: map[string][]soft.PixelFunc{
			"Draw": {func(in soft.PixelInput) color.RGBA {
				return in.Effect.Sample(effect.ImageSource, in.U, in.V)
			}},
		},
	}
}

type fixture struct {
	dev    *soft.Device
	host   *host.Host
	input  *host.Source
	filter *host.Source
}

func (fx *fixture) impl() *Filter { return fx.filter.Impl().(*Filter) }

func (fx *fixture) frame() {
	fx.host.Tick(1.0 / 60)
	fx.input.Render()
}

func newFixture(t *testing.T, width, height uint32, spec soft.EffectSpec, settings *host.Settings) *fixture {
	t.Helper()
	dev := soft.New(512, 512)
	path := filepath.Join(t.TempDir(), "pass.effect")
	if err := os.WriteFile(path, []byte("// pass"), 0644); err != nil {
		t.Fatal(err)
	}
	dev.Register(path, spec)

	h := host.New(dev)
	h.Register(&host.Factory{
		ID:   "block",
		Kind: host.KindInput,
		Create: func(*host.Host, *host.Source, *host.Settings) (host.MediaSource, error) {
			return &block{dev: dev, w: width, h: height}, nil
		},
	})
	h.Register(Factory(path))

	input, err := h.Create("block", "input", nil)
	if err != nil {
		t.Fatal(err)
	}
	filter, err := h.Create(ID, "shader", settings)
	if err != nil {
		t.Fatal(err)
	}
	if err := input.AddFilter(filter); err != nil {
		t.Fatal(err)
	}
	return &fixture{dev: dev, host: h, input: input, filter: filter}
}

func lockedScale(v float64) *host.Settings {
	s := host.NewSettings()
	s.SetBool(KeyScaleLocked, true)
	s.SetDouble(KeyScale, v)
	return s
}

func TestScaleLocked(t *testing.T) {
	s := host.NewSettings()
	scaleDefaults(s)
	s.SetDouble(KeyScale, 1.5)
	s.SetDouble(KeyScaleWidth, 3)
	s.SetDouble(KeyScaleHeight, 4)

	for i := 0; i < 3; i++ {
		st := ScaleFromSettings(s)
		if !st.Locked || st.Width != 1.5 || st.Height != 1.5 || st.Uniform != 1.5 {
			t.Fatalf("update %d: %+v", i, st)
		}
	}
	s.SetBool(KeyScaleLocked, false)
	if st := ScaleFromSettings(s); st.Width != 3 || st.Height != 4 {
		t.Errorf("unlocked %+v", st)
	}
	if w, h := (ScaleState{Width: 0.5, Height: 2}).Apply(101, 50); w != 50 || h != 100 {
		t.Errorf("apply gave %dx%d", w, h)
	}
}

func TestEndToEndScaledOutput(t *testing.T) {
	fx := newFixture(t, 100, 50, passProgram(), lockedScale(2))
	f := fx.impl()
	fx.host.Tick(1.0 / 60)
	if f.Width() != 200 || f.Height() != 100 {
		t.Fatalf("filter size %dx%d, want 200x100", f.Width(), f.Height())
	}
	if fx.input.Width() != 200 {
		t.Errorf("input with filter reports width %d", fx.input.Width())
	}

	before := fx.dev.Stats().ScopesOpened
	fx.input.Render()
	st := fx.dev.Stats()
	if st.ScopesOpened != before+2 {
		t.Errorf("opened %d scopes, want 2", st.ScopesOpened-before)
	}
	raw, shaded := f.RenderTargets()
	if w, h := raw.Size(); w != 100 || h != 50 {
		t.Errorf("raw target %dx%d", w, h)
	}
	if w, h := shaded.Size(); w != 200 || h != 100 {
		t.Errorf("shaded target %dx%d", w, h)
	}
	if st.LastSpriteW != 200 || st.LastSpriteH != 100 {
		t.Errorf("composite sprite %dx%d", st.LastSpriteW, st.LastSpriteH)
	}
	if got := fx.dev.Backbuffer().RGBAAt(190, 90); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("pixel %v, want scaled red", got)
	}
	if got := fx.dev.Backbuffer().RGBAAt(210, 90); got.A != 0 {
		t.Errorf("drew past the scaled size: %v", got)
	}

	p := f.Effect().Effect().Param(effect.ImageTargetTexel).Floats()
	if p[0] != 1.0/200 || p[1] != 1.0/100 {
		t.Errorf("target texel %v", p)
	}
	if s := f.Effect().Effect().Param(effect.ImageSourceSize).Floats(); s[0] != 100 || s[1] != 50 {
		t.Errorf("source size %v", s)
	}
	if f.State() != StateIdle {
		t.Errorf("state %v after render", f.State())
	}
}

func TestFreshForOneFrame(t *testing.T) {
	fx := newFixture(t, 10, 10, passProgram(), nil)
	f := fx.impl()
	for i := 0; i < 3; i++ {
		fx.host.Tick(1.0 / 60)
		if raw, shaded := f.Fresh(); raw || shaded {
			t.Fatalf("tick %d: fresh before render", i)
		}
		fx.input.Render()
		if raw, shaded := f.Fresh(); !raw || !shaded {
			t.Fatalf("tick %d: stale after render", i)
		}
		// a second render in the same frame reuses both targets
		before := fx.dev.Stats()
		fx.input.Render()
		after := fx.dev.Stats()
		if after.ScopesOpened != before.ScopesOpened {
			t.Errorf("tick %d: second render opened scopes", i)
		}
		if after.Sprites != before.Sprites+1 {
			t.Errorf("tick %d: second render did not composite", i)
		}
	}
}

func TestZeroSizeSkips(t *testing.T) {
	fx := newFixture(t, 0, 50, passProgram(), nil)
	before := fx.dev.Stats().ScopesOpened
	fx.frame()
	if fx.dev.Stats().ScopesOpened != before {
		t.Error("zero size input opened a render scope")
	}
	if fx.impl().State() != StateSkipped {
		t.Errorf("state %v, want skipped", fx.impl().State())
	}
}

func TestInactiveSkips(t *testing.T) {
	fx := newFixture(t, 10, 10, passProgram(), nil)
	fx.impl().Deactivate()
	before := fx.dev.Stats().ScopesOpened
	fx.frame()
	if fx.dev.Stats().ScopesOpened != before || fx.impl().State() != StateSkipped {
		t.Error("inactive filter rendered")
	}
	// skipping draws the input straight through
	if got := fx.dev.Backbuffer().RGBAAt(5, 5); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("pixel %v, want the input", got)
	}
	fx.impl().Activate()
	fx.frame()
	if fx.impl().State() != StateIdle {
		t.Errorf("state %v after reactivation", fx.impl().State())
	}
}

func TestCompileFailureSkips(t *testing.T) {
	bad := passProgram()
	bad.Err = errors.New("unexpected token")
	fx := newFixture(t, 20, 10, bad, lockedScale(2))
	f := fx.impl()
	if !errors.Is(f.Effect().Err(), host.ErrCompileOrBind) {
		t.Errorf("load error %v", f.Effect().Err())
	}
	fx.frame()
	if f.State() != StateSkipped {
		t.Errorf("state %v, want skipped", f.State())
	}
	// the input is shown at its own size instead
	bb := fx.dev.Backbuffer()
	if got := bb.RGBAAt(15, 5); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("pixel %v, want the input", got)
	}
	if got := bb.RGBAAt(30, 15); got.A != 0 {
		t.Errorf("pixel %v drawn at the scaled size", got)
	}
}

func TestPanickingPassSkips(t *testing.T) {
	spec := passProgram()
	spec.Techniques["Draw"] = []soft.PixelFunc{func(soft.PixelInput) color.RGBA { panic("bad pass") }}
	fx := newFixture(t, 4, 4, spec, nil)
	fx.frame()
	if fx.impl().State() != StateSkipped {
		t.Errorf("state %v, want skipped", fx.impl().State())
	}
	raw, shaded := fx.impl().RenderTargets()
	if raw.Active() || shaded.Active() {
		t.Error("render scope left open")
	}
}

func TestPropertiesFollowLock(t *testing.T) {
	fx := newFixture(t, 4, 4, passProgram(), nil)
	props := fx.filter.Properties()
	if props == nil {
		t.Fatal("no properties")
	}
	if !props.Get(KeyScale).Visible() || props.Get(KeyScaleWidth).Visible() {
		t.Error("locked by default but per-axis scales shown")
	}
	settings := fx.filter.Settings()
	settings.SetBool(KeyScaleLocked, false)
	if !props.Modified(KeyScaleLocked, settings) {
		t.Error("lock change did not ask for a refresh")
	}
	if props.Get(KeyScale).Visible() || !props.Get(KeyScaleHeight).Visible() {
		t.Error("unlocked visibility wrong")
	}
	p := props.Get(KeyScaleWidth)
	if p.Min != 0.01 || p.Max != 5 || p.Step != 0.01 {
		t.Errorf("scale range %+v", p)
	}
	if props.Get("Amount") == nil || props.Get(effect.ImageSource) != nil {
		t.Error("effect properties wrong")
	}
}

func TestUpdateChangesScale(t *testing.T) {
	fx := newFixture(t, 40, 20, passProgram(), nil)
	fx.host.Tick(0)
	if fx.impl().Width() != 40 {
		t.Fatalf("default scale width %d", fx.impl().Width())
	}
	changes := host.NewSettings()
	changes.SetBool(KeyScaleLocked, false)
	changes.SetDouble(KeyScaleWidth, 0.5)
	changes.SetDouble(KeyScaleHeight, 3)
	fx.filter.Update(changes)
	fx.host.Tick(0)
	if w, h := fx.impl().Width(), fx.impl().Height(); w != 20 || h != 60 {
		t.Errorf("size %dx%d, want 20x60", w, h)
	}
}
