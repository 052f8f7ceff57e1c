// Package shaderfilter implements a filter that runs a user supplied effect
// over its input and can render it at a scaled size.
package shaderfilter

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/richinsley/goshaderfx/effect"
	"github.com/richinsley/goshaderfx/gfx"
	"github.com/richinsley/goshaderfx/host"
)

// ID is the factory id of the shader filter.
const ID = "goshaderfx-filter-shader"

// State is where a filter is in its per-frame pipeline.
type State int

const (
	StateIdle State = iota
	StateMeasuring
	StateCapturingInput
	StateRendering
	StateCompositing
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMeasuring:
		return "measuring"
	case StateCapturingInput:
		return "capturing input"
	case StateRendering:
		return "rendering"
	case StateCompositing:
		return "compositing"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Factory registers the filter. defaultFile is the effect loaded when the
// settings name none.
func Factory(defaultFile string) *host.Factory {
	return &host.Factory{
		ID:   ID,
		Kind: host.KindFilter,
		Name: "Shader",
		Defaults: func(s *host.Settings) {
			effect.Defaults(s, defaultFile)
			scaleDefaults(s)
		},
		Create: func(h *host.Host, self *host.Source, s *host.Settings) (host.MediaSource, error) {
			return New(h.Device(), self, s)
		},
	}
}

// Filter is one shader filter instance. It captures its input into raw at
// native size, renders the effect into shaded at the scaled size and draws
// shaded as its output.
type Filter struct {
	self *host.Source
	dev  gfx.Device
	fx   *effect.Source

	scale  atomic.Pointer[ScaleState]
	active bool

	// --- Per tick ---

	width, height   uint32
	swidth, sheight uint32
	state           State

	raw, shaded           *gfx.RenderTarget
	rawFresh, shadedFresh bool
	rawTex, shadedTex     gfx.Texture

	lastErr string
}

// New creates a filter for self.
func New(dev gfx.Device, self *host.Source, settings *host.Settings) (*Filter, error) {
	raw, err := gfx.NewRenderTarget(dev, gfx.FormatRGBA, gfx.ZSNone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", host.ErrResourceUnavailable, err)
	}
	shaded, err := gfx.NewRenderTarget(dev, gfx.FormatRGBA, gfx.ZSNone)
	if err != nil {
		raw.Destroy()
		return nil, fmt.Errorf("%w: %v", host.ErrResourceUnavailable, err)
	}

	f := &Filter{
		self:   self,
		dev:    dev,
		fx:     effect.NewSource(dev, self.Name()),
		raw:    raw,
		shaded: shaded,
		active: true,
	}
	f.fx.Override = f.bind
	f.Update(settings)
	return f, nil
}

// Width is the scaled output width.
func (f *Filter) Width() uint32  { return f.swidth }
func (f *Filter) Height() uint32 { return f.sheight }

func (f *Filter) Scale() ScaleState {
	if st := f.scale.Load(); st != nil {
		return *st
	}
	return ScaleState{Width: 1, Height: 1, Uniform: 1}
}

func (f *Filter) State() State                { return f.state }
func (f *Filter) Effect() *effect.Source      { return f.fx }
func (f *Filter) Fresh() (raw, shaded bool)   { return f.rawFresh, f.shadedFresh }
func (f *Filter) InputSize() (uint32, uint32) { return f.width, f.height }

// RenderTargets exposes the input and output targets.
func (f *Filter) RenderTargets() (raw, shaded *gfx.RenderTarget) {
	return f.raw, f.shaded
}

func (f *Filter) Update(settings *host.Settings) {
	st := ScaleFromSettings(settings)
	f.scale.Store(&st)
	f.fx.Update(settings)
}

func (f *Filter) Load(settings *host.Settings) { f.Update(settings) }

func (f *Filter) Activate()   { f.active = true }
func (f *Filter) Deactivate() { f.active = false }

func (f *Filter) Properties() *host.Properties {
	props := host.NewProperties()
	scaleProperties(props)
	f.fx.Properties(props)
	scaleLockModified(props, props.Get(KeyScaleLocked), f.self.Settings())
	return props
}

// VideoTick measures the input, reloads the effect when its file changed and
// marks both render targets stale.
func (f *Filter) VideoTick(seconds float64) {
	f.width, f.height = 0, 0
	if target := f.self.FilterTarget(); target != nil {
		f.width, f.height = target.BaseWidth(), target.BaseHeight()
	}
	f.swidth, f.sheight = f.Scale().Apply(f.width, f.height)

	if f.fx.Tick(seconds) {
		f.Update(f.self.Settings())
	}

	f.rawFresh, f.shadedFresh = false, false
	f.state = StateIdle
}

func (f *Filter) VideoRender(composite gfx.Effect) {
	f.state = StateMeasuring
	def := f.dev.DefaultEffect()
	if !f.active || f.self.FilterParent() == nil || f.self.FilterTarget() == nil ||
		f.width == 0 || f.height == 0 || f.swidth == 0 || f.sheight == 0 || def == nil {
		f.skip()
		return
	}

	if !f.rawFresh {
		f.state = StateCapturingInput
		if err := f.captureInput(def); err != nil {
			f.logErr(err)
			f.skip()
			return
		}
		f.rawTex = f.raw.Texture()
		f.rawFresh = true
	}

	if !f.shadedFresh {
		f.state = StateRendering
		err := f.renderShaded()
		f.shadedTex = f.shaded.Texture()
		f.shadedFresh = true
		if err != nil {
			f.shadedTex = nil
			f.logErr(err)
		}
	}
	if f.shadedTex == nil {
		f.skip()
		return
	}

	f.state = StateCompositing
	if composite == nil {
		composite = def
	}
	if p := composite.Param("image"); p != nil {
		p.SetTexture(f.shadedTex)
	}
	if err := composite.Loop("Draw", func() { f.dev.DrawSprite(f.swidth, f.sheight) }); err != nil {
		f.logErr(fmt.Errorf("%w: %v", host.ErrCompileOrBind, err))
	}
	f.state = StateIdle
}

func (f *Filter) captureInput(def gfx.Effect) error {
	if !f.self.ProcessFilterBegin() {
		return nil
	}
	scope, err := f.raw.Render(f.width, f.height)
	if err != nil {
		return fmt.Errorf("%w: %v", host.ErrResourceUnavailable, err)
	}
	defer scope.Close()
	f.dev.PushState(gfx.PassthroughState(f.width, f.height))
	defer f.dev.PopState()
	f.self.ProcessFilterEnd(def, f.width, f.height)
	return nil
}

// renderShaded runs the effect into the shaded target. A panic in the pass is
// reported as a compile or bind failure.
func (f *Filter) renderShaded() (err error) {
	scope, err := f.shaded.Render(f.swidth, f.sheight)
	if err != nil {
		return fmt.Errorf("%w: %v", host.ErrResourceUnavailable, err)
	}
	defer scope.Close()
	f.dev.PushState(gfx.PassthroughState(f.swidth, f.sheight))
	defer f.dev.PopState()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: effect pass panicked: %v", host.ErrCompileOrBind, r)
		}
	}()
	return f.fx.Render(f.swidth, f.sheight)
}

// bind sets the reserved image parameters right before the effect draws.
func (f *Filter) bind(fx gfx.Effect) {
	effect.Bind(fx, effect.BindState{
		Source:       f.rawTex,
		SourceWidth:  f.width,
		SourceHeight: f.height,
		TargetWidth:  f.swidth,
		TargetHeight: f.sheight,
	})
}

func (f *Filter) skip() {
	f.state = StateSkipped
	f.self.SkipVideoFilter()
}

func (f *Filter) Destroy() {
	f.fx.Destroy()
	f.raw.Destroy()
	f.shaded.Destroy()
}

func (f *Filter) logErr(err error) {
	if msg := err.Error(); msg != f.lastErr {
		f.lastErr = msg
		log.Printf("Warning: shader filter %s: %v", f.self.Name(), err)
	}
}
