// Package gfx is the GPU abstraction consumed by the filters and sources.
//
// A Device is provided by a backend (glgfx for OpenGL, soft for the CPU
// reference renderer). All calls on a Device must happen on the render
// thread, the same way every gl.* call in a GL program has to.
package gfx

import "errors"

// ColorFormat is the pixel format of a colour surface.
type ColorFormat int

const (
	FormatRGBA ColorFormat = iota
	FormatRGBA16F
)

// ZStencilFormat selects the optional depth/stencil attachment of a surface.
type ZStencilFormat int

const (
	ZSNone ZStencilFormat = iota
	ZS24S8
)

// ScaleFilter is the sampling algorithm used when a texture is drawn at a
// size different from its own.
type ScaleFilter int

const (
	FilterPoint ScaleFilter = iota
	FilterBilinear
	FilterBicubic
	FilterLanczos
	FilterArea
)

func (f ScaleFilter) String() string {
	switch f {
	case FilterPoint:
		return "point"
	case FilterBilinear:
		return "bilinear"
	case FilterBicubic:
		return "bicubic"
	case FilterLanczos:
		return "lanczos"
	case FilterArea:
		return "area"
	default:
		return "unknown"
	}
}

// ErrNoTechnique is returned by Effect.Loop when the technique does not exist.
var ErrNoTechnique = errors.New("technique not found")

// Texture is a readable GPU image.
type Texture interface {
	Width() uint32
	Height() uint32
	Format() ColorFormat
}

// Surface is the backend half of a RenderTarget: an offscreen colour buffer
// that can be bound as the draw destination.
type Surface interface {
	// Begin binds the surface at the given size and clears it.
	Begin(width, height uint32) error
	// End unbinds the surface and returns its texture.
	End() Texture
	Destroy()
}

// Ortho is an orthographic projection in pixel space.
type Ortho struct {
	Left, Right, Top, Bottom, Near, Far float32
}

// DrawState is the fixed-function state applied while drawing.
type DrawState struct {
	Blend        bool
	DepthTest    bool
	StencilTest  bool
	StencilWrite bool
	CullNone     bool
	Projection   *Ortho
}

// PassthroughState is the state used to copy a source 1:1 into a target of
// width x height: no blending, depth or stencil, and a pixel-space projection.
func PassthroughState(width, height uint32) DrawState {
	return DrawState{
		CullNone: true,
		Projection: &Ortho{
			Left: 0, Right: float32(width),
			Top: 0, Bottom: float32(height),
			Near: -1, Far: 1,
		},
	}
}

// Effect is a compiled GPU program with named techniques.
type Effect interface {
	Name() string
	Params() []*Param
	// Param returns nil when the program has no parameter of that name.
	Param(name string) *Param
	// Loop runs every pass of technique, calling draw once per pass with the
	// program bound and the current parameter values uploaded.
	Loop(technique string, draw func()) error
	Destroy()
}

// Device creates GPU resources and issues draws.
type Device interface {
	NewSurface(format ColorFormat, zs ZStencilFormat) (Surface, error)
	LoadEffectFile(path string) (Effect, error)
	LoadEffectSource(name, code string) (Effect, error)
	LoadTexture(path string) (Texture, error)

	// DefaultEffect is the host's textured draw: parameter "image", technique "Draw".
	DefaultEffect() Effect

	PushState(s DrawState)
	PopState()

	// DrawSprite draws a width x height quad with the effect pass that is
	// currently running in Effect.Loop.
	DrawSprite(width, height uint32)
	// DrawTexture draws tex as a width x height sprite through the default
	// effect using filter for sampling.
	DrawTexture(tex Texture, width, height uint32, filter ScaleFilter)
}

// Reader is implemented by devices that can read a texture back to memory
// as tightly packed 8-bit RGBA.
type Reader interface {
	ReadPixels(tex Texture) ([]byte, error)
}
