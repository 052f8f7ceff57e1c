package soft

import (
	"fmt"
	"image/color"
	"math"

	"github.com/richinsley/goshaderfx/gfx"
	xdraw "golang.org/x/image/draw"
)

// SolidProgramName is the built-in program that fills with its "color" float4.
const SolidProgramName = "solid"

// PixelInput is what a pixel function sees for one output pixel.
type PixelInput struct {
	U, V          float32
	X, Y          int
	Width, Height uint32
	Effect        *Effect
}

// PixelFunc computes one output pixel of a pass.
type PixelFunc func(in PixelInput) color.RGBA

// EffectSpec describes a program: its parameters and, per technique, the
// pixel function of every pass.
type EffectSpec struct {
	Params     []gfx.ParamSpec
	Techniques map[string][]PixelFunc
	// Err, when set, fails the load as a compile error would.
	Err error
}

// Effect is a loaded soft program.
type Effect struct {
	dev        *Device
	name       string
	params     []*gfx.Param
	byName     map[string]*gfx.Param
	techniques map[string][]PixelFunc
}

func (d *Device) newEffect(name string, spec EffectSpec) *Effect {
	e := &Effect{
		dev:        d,
		name:       name,
		byName:     make(map[string]*gfx.Param),
		techniques: spec.Techniques,
	}
	for _, ps := range spec.Params {
		p := gfx.NewParam(ps)
		e.params = append(e.params, p)
		e.byName[ps.Name] = p
	}
	return e
}

func (e *Effect) Name() string                 { return e.name }
func (e *Effect) Params() []*gfx.Param         { return e.params }
func (e *Effect) Param(name string) *gfx.Param { return e.byName[name] }
func (e *Effect) Destroy()                     {}

func (e *Effect) Loop(technique string, draw func()) error {
	passes, ok := e.techniques[technique]
	if !ok {
		return fmt.Errorf("%s: %w: %q", e.name, gfx.ErrNoTechnique, technique)
	}
	prev := e.dev.pass
	defer func() { e.dev.pass = prev }()
	for _, fn := range passes {
		e.dev.pass = &pass{effect: e, fn: fn}
		draw()
	}
	for _, p := range e.params {
		p.ClearDirty()
	}
	return nil
}

// Sample reads the texture parameter name at (u, v). Unbound or unknown
// textures sample as transparent black.
func (e *Effect) Sample(name string, u, v float32) color.RGBA {
	p := e.byName[name]
	if p == nil {
		return color.RGBA{}
	}
	t, ok := p.Texture().(*Texture)
	if !ok || t == nil {
		return color.RGBA{}
	}
	return t.At(u, v)
}

// Floats returns the float components of parameter name, or nil.
func (e *Effect) Floats(name string) []float32 {
	if p := e.byName[name]; p != nil {
		return p.Floats()
	}
	return nil
}

func defaultProgram() EffectSpec {
	return EffectSpec{
		Params: []gfx.ParamSpec{{Name: "image", Type: gfx.ParamTexture}},
		Techniques: map[string][]PixelFunc{
			"Draw": {func(in PixelInput) color.RGBA {
				return in.Effect.Sample("image", in.U, in.V)
			}},
		},
	}
}

func solidProgram() EffectSpec {
	return EffectSpec{
		Params: []gfx.ParamSpec{{Name: "color", Type: gfx.ParamFloat4, Floats: []float32{0, 0, 0, 1}}},
		Techniques: map[string][]PixelFunc{
			"Draw": {func(in PixelInput) color.RGBA {
				return ColorFromFloats(in.Effect.Floats("color"))
			}},
		},
	}
}

// ColorFromFloats converts normalized RGBA components to a color.
func ColorFromFloats(f []float32) color.RGBA {
	var c [4]uint8
	for i := 0; i < 4 && i < len(f); i++ {
		v := math.Round(float64(f[i]) * 255)
		c[i] = uint8(math.Max(0, math.Min(255, v)))
	}
	return color.RGBA{c[0], c[1], c[2], c[3]}
}

var (
	lanczos3 = &xdraw.Kernel{Support: 3, At: func(t float64) float64 {
		if t == 0 {
			return 1
		}
		if t >= 3 {
			return 0
		}
		pt := math.Pi * t
		return 3 * math.Sin(pt) * math.Sin(pt/3) / (pt * pt)
	}}
	// a box kernel widens with the downscale factor, which averages the
	// covered source area
	box = &xdraw.Kernel{Support: 0.5, At: func(t float64) float64 { return 1 }}
)

// Scaler maps a scale filter to an x/image interpolator.
func Scaler(f gfx.ScaleFilter) xdraw.Scaler {
	switch f {
	case gfx.FilterPoint:
		return xdraw.NearestNeighbor
	case gfx.FilterBilinear:
		return xdraw.BiLinear
	case gfx.FilterBicubic:
		return xdraw.CatmullRom
	case gfx.FilterLanczos:
		return lanczos3
	case gfx.FilterArea:
		return box
	default:
		return xdraw.ApproxBiLinear
	}
}
