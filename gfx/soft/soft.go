// Package soft is a CPU implementation of gfx.Device on image.RGBA.
//
// It has no shader compiler. Programs are Go pixel functions registered under
// the path or name the caller later loads, which makes it the deterministic
// backend used by tests and by hosts without a GL context.
package soft

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"os"

	"github.com/richinsley/goshaderfx/gfx"
	xdraw "golang.org/x/image/draw"

	// Texture file formats understood by LoadTexture.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmptySurface is returned when a surface is bound with a zero dimension.
var ErrEmptySurface = errors.New("surface has a zero dimension")

// Stats counts device activity since creation.
type Stats struct {
	ScopesOpened int
	Sprites      int
	EffectLoads  int
	LastSpriteW  uint32
	LastSpriteH  uint32
}

// Device draws into a stack of RGBA images. The bottom of the stack is the
// backbuffer.
type Device struct {
	backbuffer *image.RGBA
	targets    []*image.RGBA
	states     []gfx.DrawState
	programs   map[string]EffectSpec
	pass       *pass
	def        *Effect
	stats      Stats
}

type pass struct {
	effect *Effect
	fn     PixelFunc
}

// New creates a device with a width x height backbuffer.
func New(width, height int) *Device {
	d := &Device{
		backbuffer: image.NewRGBA(image.Rect(0, 0, width, height)),
		programs:   make(map[string]EffectSpec),
	}
	d.def = d.newEffect("default", defaultProgram())
	d.Register(SolidProgramName, solidProgram())
	return d
}

// Backbuffer is the image drawn to when no surface is bound.
func (d *Device) Backbuffer() *image.RGBA { return d.backbuffer }

// Stats returns the activity counters.
func (d *Device) Stats() Stats { return d.stats }

// Register makes a program loadable under key, which is either a file path
// for LoadEffectFile or a name for LoadEffectSource.
func (d *Device) Register(key string, spec EffectSpec) {
	d.programs[key] = spec
}

func (d *Device) NewSurface(format gfx.ColorFormat, zs gfx.ZStencilFormat) (gfx.Surface, error) {
	return &surface{dev: d, format: format}, nil
}

func (d *Device) LoadEffectFile(path string) (gfx.Effect, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open effect file: %w", err)
	}
	return d.load(path)
}

func (d *Device) LoadEffectSource(name, code string) (gfx.Effect, error) {
	return d.load(name)
}

func (d *Device) load(key string) (gfx.Effect, error) {
	d.stats.EffectLoads++
	spec, ok := d.programs[key]
	if !ok {
		return nil, fmt.Errorf("no program registered for %q", key)
	}
	if spec.Err != nil {
		return nil, fmt.Errorf("failed to compile %q: %w", key, spec.Err)
	}
	return d.newEffect(key, spec), nil
}

// LoadTexture decodes an image file into a texture.
func (d *Device) LoadTexture(path string) (gfx.Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture %s: %w", path, err)
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	return &Texture{img: rgba}, nil
}

func (d *Device) DefaultEffect() gfx.Effect { return d.def }

func (d *Device) PushState(s gfx.DrawState) { d.states = append(d.states, s) }

func (d *Device) PopState() {
	if len(d.states) == 0 {
		log.Println("Warning: soft device state stack underflow")
		return
	}
	d.states = d.states[:len(d.states)-1]
}

func (d *Device) state() gfx.DrawState {
	if len(d.states) == 0 {
		return gfx.DrawState{}
	}
	return d.states[len(d.states)-1]
}

func (d *Device) target() *image.RGBA {
	if len(d.targets) == 0 {
		return d.backbuffer
	}
	return d.targets[len(d.targets)-1]
}

// DrawSprite shades every pixel of a width x height quad at the origin with
// the pass currently running in Effect.Loop.
func (d *Device) DrawSprite(width, height uint32) {
	if d.pass == nil {
		log.Println("Warning: DrawSprite called outside of an effect pass")
		return
	}
	d.stats.Sprites++
	d.stats.LastSpriteW, d.stats.LastSpriteH = width, height

	dst := d.target()
	r := image.Rect(0, 0, int(width), int(height)).Intersect(dst.Bounds())
	blend := d.state().Blend
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := d.pass.fn(PixelInput{
				U:      (float32(x) + 0.5) / float32(width),
				V:      (float32(y) + 0.5) / float32(height),
				X:      x,
				Y:      y,
				Width:  width,
				Height: height,
				Effect: d.pass.effect,
			})
			if blend {
				c = over(c, dst.RGBAAt(x, y))
			}
			dst.SetRGBA(x, y, c)
		}
	}
}

// DrawTexture scales tex into a width x height rectangle at the origin.
func (d *Device) DrawTexture(tex gfx.Texture, width, height uint32, filter gfx.ScaleFilter) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		log.Printf("Warning: soft device cannot draw texture of type %T", tex)
		return
	}
	d.stats.Sprites++
	d.stats.LastSpriteW, d.stats.LastSpriteH = width, height

	op := xdraw.Src
	if d.state().Blend {
		op = xdraw.Over
	}
	dr := image.Rect(0, 0, int(width), int(height))
	Scaler(filter).Scale(d.target(), dr, t.img, t.img.Bounds(), op, nil)
}

// ReadPixels copies tex into tightly packed RGBA bytes.
func (d *Device) ReadPixels(tex gfx.Texture) ([]byte, error) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return nil, fmt.Errorf("cannot read texture of type %T", tex)
	}
	out := make([]byte, len(t.img.Pix))
	copy(out, t.img.Pix)
	return out, nil
}

func over(src, dst color.RGBA) color.RGBA {
	a := uint32(src.A)
	mix := func(s, d uint8) uint8 {
		return uint8((uint32(s)*255 + uint32(d)*(255-a)) / 255)
	}
	return color.RGBA{
		R: mix(src.R, dst.R),
		G: mix(src.G, dst.G),
		B: mix(src.B, dst.B),
		A: uint8(a + uint32(dst.A)*(255-a)/255),
	}
}

// Texture is an immutable RGBA image.
type Texture struct {
	img    *image.RGBA
	format gfx.ColorFormat
}

// NewTexture wraps img. The image must not be modified afterwards.
func NewTexture(img *image.RGBA) *Texture { return &Texture{img: img} }

func (t *Texture) Width() uint32           { return uint32(t.img.Bounds().Dx()) }
func (t *Texture) Height() uint32          { return uint32(t.img.Bounds().Dy()) }
func (t *Texture) Format() gfx.ColorFormat { return t.format }
func (t *Texture) Image() *image.RGBA      { return t.img }

// At samples the texture at normalized coordinates with nearest filtering and
// clamped addressing.
func (t *Texture) At(u, v float32) color.RGBA {
	b := t.img.Bounds()
	if b.Empty() {
		return color.RGBA{}
	}
	x := clamp(int(u*float32(b.Dx())), 0, b.Dx()-1)
	y := clamp(int(v*float32(b.Dy())), 0, b.Dy()-1)
	return t.img.RGBAAt(b.Min.X+x, b.Min.Y+y)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type surface struct {
	dev    *Device
	format gfx.ColorFormat
	img    *image.RGBA
	bound  bool
}

// Begin allocates a fresh image so textures returned by earlier renders stay
// valid.
func (s *surface) Begin(width, height uint32) error {
	if width == 0 || height == 0 {
		return ErrEmptySurface
	}
	if s.bound {
		return errors.New("surface already bound")
	}
	s.img = image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	s.bound = true
	s.dev.targets = append(s.dev.targets, s.img)
	s.dev.stats.ScopesOpened++
	return nil
}

func (s *surface) End() gfx.Texture {
	if !s.bound {
		return nil
	}
	s.bound = false
	// scopes nest, so the top of the stack is ours
	s.dev.targets = s.dev.targets[:len(s.dev.targets)-1]
	return &Texture{img: s.img, format: s.format}
}

func (s *surface) Destroy() { s.img = nil }
